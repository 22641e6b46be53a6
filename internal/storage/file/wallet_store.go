package file

import (
	"context"
	"path/filepath"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/storage"
)

// WalletStore keeps the wallet registry as a JSON array.
type WalletStore struct {
	f jsonFile
}

// NewWalletStore creates a store backed by dir/custom_tracked_wallets.json.
func NewWalletStore(dir string) *WalletStore {
	return &WalletStore{f: jsonFile{path: filepath.Join(dir, WalletsFile)}}
}

// List returns wallets in file order; a missing file is an empty registry.
func (s *WalletStore) List(_ context.Context) ([]domain.TrackedWallet, error) {
	s.f.mu.RLock()
	defer s.f.mu.RUnlock()
	return s.load()
}

// Insert appends a wallet. Returns ErrDuplicateKey if the address exists.
func (s *WalletStore) Insert(_ context.Context, w domain.TrackedWallet) error {
	if w.Address == "" {
		return storage.ErrInvalidInput
	}

	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	wallets, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range wallets {
		if existing.Address == w.Address {
			return storage.ErrDuplicateKey
		}
	}
	return s.f.write(append(wallets, w))
}

// Delete removes a wallet. Returns ErrNotFound if the address is absent.
func (s *WalletStore) Delete(_ context.Context, address string) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	wallets, err := s.load()
	if err != nil {
		return err
	}
	kept := make([]domain.TrackedWallet, 0, len(wallets))
	for _, w := range wallets {
		if w.Address != address {
			kept = append(kept, w)
		}
	}
	if len(kept) == len(wallets) {
		return storage.ErrNotFound
	}
	return s.f.write(kept)
}

func (s *WalletStore) load() ([]domain.TrackedWallet, error) {
	var wallets []domain.TrackedWallet
	if _, err := s.f.read(&wallets); err != nil {
		if isNotExist(err) {
			return []domain.TrackedWallet{}, nil
		}
		return nil, err
	}
	if wallets == nil {
		wallets = []domain.TrackedWallet{}
	}
	return wallets, nil
}
