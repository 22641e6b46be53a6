// Package tracking manages the user-maintained wallet registry and scans
// its wallets on demand.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/storage"
)

// Registry failure messages.
const (
	MsgAddressRequired = "Wallet address is required"
	MsgAlreadyTracked  = "Wallet already in tracking list"
	MsgNotTracked      = "Wallet not found in tracking list"
	MsgAdded           = "Wallet added successfully"
	MsgRemoved         = "Wallet removed successfully"
)

// Result reports the outcome of a registry operation. Validation failures
// are results, not errors.
type Result struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Wallets []domain.TrackedWallet `json:"wallets,omitempty"`
}

// Registry validates and applies changes to the wallet registry.
type Registry struct {
	mu    sync.Mutex
	store storage.WalletStore
	now   func() time.Time
}

// NewRegistry creates a Registry over store.
func NewRegistry(store storage.WalletStore) *Registry {
	return &Registry{store: store, now: time.Now}
}

// Add registers address under name. An empty name becomes "Wallet N".
func (r *Registry) Add(ctx context.Context, address, name string) (*Result, error) {
	address = strings.TrimSpace(address)
	name = strings.TrimSpace(name)
	if address == "" {
		return &Result{Message: MsgAddressRequired}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	wallets, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	for _, w := range wallets {
		if w.Address == address {
			return &Result{Message: MsgAlreadyTracked}, nil
		}
	}

	if name == "" {
		name = fmt.Sprintf("Wallet %d", len(wallets)+1)
	}
	w := domain.TrackedWallet{
		Address: address,
		Name:    name,
		AddedAt: domain.FormatTime(r.now()),
	}
	if err := r.store.Insert(ctx, w); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return &Result{Message: MsgAlreadyTracked}, nil
		}
		return nil, fmt.Errorf("insert wallet: %w", err)
	}

	return &Result{Success: true, Message: MsgAdded, Wallets: append(wallets, w)}, nil
}

// Remove drops address from the registry.
func (r *Registry) Remove(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return &Result{Message: MsgAddressRequired}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, address); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Result{Message: MsgNotTracked}, nil
		}
		return nil, fmt.Errorf("delete wallet: %w", err)
	}

	wallets, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	return &Result{Success: true, Message: MsgRemoved, Wallets: wallets}, nil
}

// List returns the registered wallets.
func (r *Registry) List(ctx context.Context) ([]domain.TrackedWallet, error) {
	return r.store.List(ctx)
}

// Addresses returns the registered addresses in registry order.
func (r *Registry) Addresses(ctx context.Context) ([]string, error) {
	wallets, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(wallets))
	for i, w := range wallets {
		out[i] = w.Address
	}
	return out, nil
}
