package storage

import (
	"context"

	"solana-copurchase/internal/domain"
)

// SignalStore holds the latest co-purchase snapshot. Save replaces the whole
// snapshot; readers observe either the previous or the new one, never a mix.
type SignalStore interface {
	// Load returns the stored snapshot, or an empty snapshot if none exists.
	Load(ctx context.Context) (*domain.SignalSnapshot, error)

	// Save replaces the snapshot with candidates.
	Save(ctx context.Context, candidates []domain.TokenCandidate) error
}

// WalletStore holds the tracked wallet registry, keyed by address.
type WalletStore interface {
	// List returns wallets in insertion order.
	List(ctx context.Context) ([]domain.TrackedWallet, error)

	// Insert adds a wallet. Returns ErrDuplicateKey if the address exists.
	Insert(ctx context.Context, w domain.TrackedWallet) error

	// Delete removes a wallet. Returns ErrNotFound if the address is absent.
	Delete(ctx context.Context, address string) error
}

// TrackerResultStore holds the latest tracked-wallet scan results.
type TrackerResultStore interface {
	// Load returns stored results, or nil if none exist.
	Load(ctx context.Context) ([]domain.TrackedScanResult, error)

	// Save replaces the stored results.
	Save(ctx context.Context, results []domain.TrackedScanResult) error
}

// PurchaseArchive is an append-only log of purchase events across scan runs.
type PurchaseArchive interface {
	// InsertBulk appends the events of one scan run.
	InsertBulk(ctx context.Context, runID string, events []domain.PurchaseEvent) error

	// GetByToken returns archived events for token, ordered by block time ASC.
	GetByToken(ctx context.Context, token string) ([]domain.PurchaseEvent, error)
}
