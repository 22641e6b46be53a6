package memory

import (
	"context"
	"sync"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/storage"
)

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu      sync.RWMutex
	wallets []domain.TrackedWallet
}

// NewWalletStore creates a new in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{}
}

// List returns wallets in insertion order.
func (s *WalletStore) List(_ context.Context) ([]domain.TrackedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TrackedWallet, len(s.wallets))
	copy(out, s.wallets)
	return out, nil
}

// Insert adds a wallet. Returns ErrDuplicateKey if the address exists.
func (s *WalletStore) Insert(_ context.Context, w domain.TrackedWallet) error {
	if w.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.wallets {
		if existing.Address == w.Address {
			return storage.ErrDuplicateKey
		}
	}
	s.wallets = append(s.wallets, w)
	return nil
}

// Delete removes a wallet. Returns ErrNotFound if the address is absent.
func (s *WalletStore) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.wallets {
		if w.Address == address {
			s.wallets = append(s.wallets[:i], s.wallets[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}
