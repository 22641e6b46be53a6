package file

import (
	"context"
	"path/filepath"

	"solana-copurchase/internal/domain"
)

// TrackerResultStore keeps tracked-wallet scan results as a JSON array.
type TrackerResultStore struct {
	f jsonFile
}

// NewTrackerResultStore creates a store backed by dir/custom_tracker_results.json.
func NewTrackerResultStore(dir string) *TrackerResultStore {
	return &TrackerResultStore{f: jsonFile{path: filepath.Join(dir, TrackerResultsFile)}}
}

// Load returns stored results, or nil if the file is missing.
func (s *TrackerResultStore) Load(_ context.Context) ([]domain.TrackedScanResult, error) {
	s.f.mu.RLock()
	defer s.f.mu.RUnlock()

	var results []domain.TrackedScanResult
	if _, err := s.f.read(&results); err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return results, nil
}

// Save replaces the stored results.
func (s *TrackerResultStore) Save(_ context.Context, results []domain.TrackedScanResult) error {
	if results == nil {
		results = []domain.TrackedScanResult{}
	}

	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	return s.f.write(results)
}
