package memory

import (
	"context"
	"sort"
	"sync"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/storage"
)

// PurchaseArchive is an in-memory implementation of storage.PurchaseArchive.
type PurchaseArchive struct {
	mu      sync.RWMutex
	byToken map[string][]domain.PurchaseEvent
	runs    map[string]int
}

// NewPurchaseArchive creates a new in-memory purchase archive.
func NewPurchaseArchive() *PurchaseArchive {
	return &PurchaseArchive{
		byToken: make(map[string][]domain.PurchaseEvent),
		runs:    make(map[string]int),
	}
}

// InsertBulk appends the events of one run. A run ID may be written once.
func (a *PurchaseArchive) InsertBulk(_ context.Context, runID string, events []domain.PurchaseEvent) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.runs[runID]; exists {
		return storage.ErrDuplicateKey
	}
	a.runs[runID] = len(events)
	for _, e := range events {
		a.byToken[e.Token] = append(a.byToken[e.Token], e)
	}
	return nil
}

// GetByToken returns archived events for token, ordered by block time ASC.
func (a *PurchaseArchive) GetByToken(_ context.Context, token string) ([]domain.PurchaseEvent, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := append([]domain.PurchaseEvent(nil), a.byToken[token]...)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].BlockTime < result[j].BlockTime
	})
	return result, nil
}

// Runs returns the number of runs archived.
func (a *PurchaseArchive) Runs() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.runs)
}
