package memory

import (
	"context"
	"sync"

	"solana-copurchase/internal/domain"
)

// TrackerResultStore is an in-memory implementation of storage.TrackerResultStore.
type TrackerResultStore struct {
	mu      sync.RWMutex
	results []domain.TrackedScanResult
}

// NewTrackerResultStore creates a new in-memory tracker result store.
func NewTrackerResultStore() *TrackerResultStore {
	return &TrackerResultStore{}
}

// Load returns a copy of the stored results.
func (s *TrackerResultStore) Load(_ context.Context) ([]domain.TrackedScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.results == nil {
		return nil, nil
	}
	return copyResults(s.results), nil
}

// Save replaces the stored results.
func (s *TrackerResultStore) Save(_ context.Context, results []domain.TrackedScanResult) error {
	cp := copyResults(results)

	s.mu.Lock()
	s.results = cp
	s.mu.Unlock()
	return nil
}

func copyResults(in []domain.TrackedScanResult) []domain.TrackedScanResult {
	out := make([]domain.TrackedScanResult, len(in))
	for i, r := range in {
		if r.TokensBought != nil {
			tokens := make([]domain.TokenSummary, len(r.TokensBought))
			copy(tokens, r.TokensBought)
			r.TokensBought = tokens
		}
		out[i] = r
	}
	return out
}
