package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/storage"
)

// TrackerResultStore implements storage.TrackerResultStore using PostgreSQL.
type TrackerResultStore struct {
	pool *Pool
}

// NewTrackerResultStore creates a new TrackerResultStore.
func NewTrackerResultStore(pool *Pool) *TrackerResultStore {
	return &TrackerResultStore{pool: pool}
}

var _ storage.TrackerResultStore = (*TrackerResultStore)(nil)

// Load returns stored results, or nil when none exist.
func (s *TrackerResultStore) Load(ctx context.Context) ([]domain.TrackedScanResult, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM tracker_results ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query tracker results: %w", err)
	}
	defer rows.Close()

	var results []domain.TrackedScanResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan tracker result: %w", err)
		}
		var r domain.TrackedScanResult
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("decode tracker result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Save replaces the stored results atomically.
func (s *TrackerResultStore) Save(ctx context.Context, results []domain.TrackedScanResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM tracker_results`)
	for i, r := range results {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode tracker result: %w", err)
		}
		batch.Queue(`INSERT INTO tracker_results (position, wallet_address, payload) VALUES ($1, $2, $3)`,
			i, r.WalletAddress, payload)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("replace tracker results: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
