package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/storage"
)

// PurchaseArchive implements storage.PurchaseArchive using PostgreSQL.
type PurchaseArchive struct {
	pool *Pool
}

// NewPurchaseArchive creates a new PurchaseArchive.
func NewPurchaseArchive(pool *Pool) *PurchaseArchive {
	return &PurchaseArchive{pool: pool}
}

var _ storage.PurchaseArchive = (*PurchaseArchive)(nil)

// InsertBulk appends one run's events atomically. Returns ErrDuplicateKey
// if the run was already archived.
func (a *PurchaseArchive) InsertBulk(ctx context.Context, runID string, events []domain.PurchaseEvent) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO scan_runs (run_id) VALUES ($1)`, runID); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}

	rows := make([][]interface{}, len(events))
	for i, e := range events {
		rows[i] = []interface{}{runID, e.Token, e.Wallet, e.Signature, e.BlockTime, e.AmountIncrease.String()}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"purchases"},
		[]string{"run_id", "token", "wallet", "signature", "block_time", "amount"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy purchases: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByToken returns archived events for token, ordered by block time ASC.
func (a *PurchaseArchive) GetByToken(ctx context.Context, token string) ([]domain.PurchaseEvent, error) {
	query := `
		SELECT token, wallet, signature, block_time, amount
		FROM purchases
		WHERE token = $1
		ORDER BY block_time ASC, id ASC
	`

	rows, err := a.pool.Query(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("get purchases by token: %w", err)
	}
	defer rows.Close()

	events := []domain.PurchaseEvent{}
	for rows.Next() {
		var (
			e      domain.PurchaseEvent
			amount string
		)
		if err := rows.Scan(&e.Token, &e.Wallet, &e.Signature, &e.BlockTime, &amount); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		if e.AmountIncrease, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		e.PurchaseTime = domain.FormatUnix(e.BlockTime)
		events = append(events, e)
	}
	return events, rows.Err()
}
