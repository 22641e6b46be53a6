package file

import (
	"context"
	"path/filepath"

	"solana-copurchase/internal/domain"
)

// SignalStore keeps the co-purchase snapshot as a JSON array of candidates.
// The scan time is the file's modification time.
type SignalStore struct {
	f jsonFile
}

// NewSignalStore creates a store backed by dir/copurchase_signals.json.
func NewSignalStore(dir string) *SignalStore {
	return &SignalStore{f: jsonFile{path: filepath.Join(dir, SignalsFile)}}
}

// Path returns the backing file path.
func (s *SignalStore) Path() string { return s.f.path }

// Load returns the stored snapshot, or an empty one if the file is missing.
func (s *SignalStore) Load(_ context.Context) (*domain.SignalSnapshot, error) {
	s.f.mu.RLock()
	defer s.f.mu.RUnlock()

	var candidates []domain.TokenCandidate
	info, err := s.f.read(&candidates)
	if err != nil {
		if isNotExist(err) {
			return &domain.SignalSnapshot{Candidates: []domain.TokenCandidate{}}, nil
		}
		return nil, err
	}
	if candidates == nil {
		candidates = []domain.TokenCandidate{}
	}
	return &domain.SignalSnapshot{Candidates: candidates, ScannedAt: info.ModTime().UTC()}, nil
}

// Save replaces the snapshot.
func (s *SignalStore) Save(_ context.Context, candidates []domain.TokenCandidate) error {
	if candidates == nil {
		candidates = []domain.TokenCandidate{}
	}

	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	return s.f.write(candidates)
}
