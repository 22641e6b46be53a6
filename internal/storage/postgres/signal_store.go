package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

var _ storage.SignalStore = (*SignalStore)(nil)

// Load returns the stored snapshot, or an empty one.
func (s *SignalStore) Load(ctx context.Context) (*domain.SignalSnapshot, error) {
	snap := &domain.SignalSnapshot{Candidates: []domain.TokenCandidate{}}

	var scannedAt time.Time
	err := s.pool.QueryRow(ctx, `SELECT scanned_at FROM signal_meta WHERE id = 1`).Scan(&scannedAt)
	if err != nil {
		if isNotFoundError(err) {
			return snap, nil
		}
		return nil, fmt.Errorf("read signal meta: %w", err)
	}
	snap.ScannedAt = scannedAt.UTC()

	rows, err := s.pool.Query(ctx, `SELECT payload FROM signal_candidates ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		var c domain.TokenCandidate
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("decode candidate: %w", err)
		}
		snap.Candidates = append(snap.Candidates, c)
	}
	return snap, rows.Err()
}

// Save replaces the snapshot atomically.
func (s *SignalStore) Save(ctx context.Context, candidates []domain.TokenCandidate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM signal_candidates`)
	for i, c := range candidates {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode candidate %s: %w", c.Token, err)
		}
		batch.Queue(`INSERT INTO signal_candidates (position, token, payload) VALUES ($1, $2, $3)`,
			i, c.Token, payload)
	}
	batch.Queue(`
		INSERT INTO signal_meta (id, scanned_at) VALUES (1, now())
		ON CONFLICT (id) DO UPDATE SET scanned_at = EXCLUDED.scanned_at`)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
