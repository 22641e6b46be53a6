package memory

import (
	"context"
	"sync"
	"time"

	"solana-copurchase/internal/domain"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu       sync.RWMutex
	snapshot *domain.SignalSnapshot
	now      func() time.Time
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{now: time.Now}
}

// Load returns a copy of the stored snapshot, or an empty one.
func (s *SignalStore) Load(_ context.Context) (*domain.SignalSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return &domain.SignalSnapshot{Candidates: []domain.TokenCandidate{}}, nil
	}
	candidates := domain.CloneCandidates(s.snapshot.Candidates)
	if candidates == nil {
		candidates = []domain.TokenCandidate{}
	}
	return &domain.SignalSnapshot{Candidates: candidates, ScannedAt: s.snapshot.ScannedAt}, nil
}

// Save replaces the snapshot.
func (s *SignalStore) Save(_ context.Context, candidates []domain.TokenCandidate) error {
	snap := &domain.SignalSnapshot{
		Candidates: domain.CloneCandidates(candidates),
		ScannedAt:  s.now().UTC(),
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	return nil
}
