package postgres

import (
	"context"
	"fmt"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

var _ storage.WalletStore = (*WalletStore)(nil)

// List returns wallets in insertion order.
func (s *WalletStore) List(ctx context.Context) ([]domain.TrackedWallet, error) {
	rows, err := s.pool.Query(ctx, `SELECT address, name, added_at FROM tracked_wallets ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	wallets := []domain.TrackedWallet{}
	for rows.Next() {
		var w domain.TrackedWallet
		if err := rows.Scan(&w.Address, &w.Name, &w.AddedAt); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// Insert adds a wallet. Returns ErrDuplicateKey if the address exists.
func (s *WalletStore) Insert(ctx context.Context, w domain.TrackedWallet) error {
	if w.Address == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tracked_wallets (address, name, added_at) VALUES ($1, $2, $3)`,
		w.Address, w.Name, w.AddedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// Delete removes a wallet. Returns ErrNotFound if the address is absent.
func (s *WalletStore) Delete(ctx context.Context, address string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tracked_wallets WHERE address = $1`, address)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
