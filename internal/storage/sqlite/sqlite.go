// Package sqlite provides SQLite-backed implementations of the storage
// interfaces. All stores share one database handle.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/storage"
)

// DB wraps a SQLite database.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path. ":memory:" is accepted.
func Open(ctx context.Context, path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	d := &DB{db: db, now: time.Now}
	if err := d.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return d, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signal_candidates (
			position INTEGER PRIMARY KEY,
			token    TEXT NOT NULL,
			payload  TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS signal_meta (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			scanned_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tracked_wallets (
			seq      INTEGER PRIMARY KEY AUTOINCREMENT,
			address  TEXT NOT NULL UNIQUE,
			name     TEXT NOT NULL,
			added_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tracker_results (
			position INTEGER PRIMARY KEY,
			payload  TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scan_runs (
			run_id      TEXT PRIMARY KEY,
			archived_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS purchases (
			run_id     TEXT NOT NULL REFERENCES scan_runs(run_id),
			token      TEXT NOT NULL,
			wallet     TEXT NOT NULL,
			signature  TEXT NOT NULL,
			block_time INTEGER NOT NULL,
			amount     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_token ON purchases(token, block_time)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Signals returns the signal store view.
func (d *DB) Signals() *SignalStore { return &SignalStore{d: d} }

// Wallets returns the wallet registry view.
func (d *DB) Wallets() *WalletStore { return &WalletStore{d: d} }

// TrackerResults returns the tracker result view.
func (d *DB) TrackerResults() *TrackerResultStore { return &TrackerResultStore{d: d} }

// Purchases returns the purchase archive view.
func (d *DB) Purchases() *PurchaseArchive { return &PurchaseArchive{d: d} }

// SignalStore implements storage.SignalStore.
type SignalStore struct{ d *DB }

// Load returns the stored snapshot, or an empty one.
func (s *SignalStore) Load(ctx context.Context) (*domain.SignalSnapshot, error) {
	snap := &domain.SignalSnapshot{Candidates: []domain.TokenCandidate{}}

	var scannedAt int64
	err := s.d.db.QueryRowContext(ctx, `SELECT scanned_at FROM signal_meta WHERE id = 1`).Scan(&scannedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return snap, nil
	case err != nil:
		return nil, fmt.Errorf("read signal meta: %w", err)
	}
	snap.ScannedAt = time.Unix(0, scannedAt).UTC()

	rows, err := s.d.db.QueryContext(ctx, `SELECT payload FROM signal_candidates ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var c domain.TokenCandidate
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, fmt.Errorf("decode candidate: %w", err)
		}
		snap.Candidates = append(snap.Candidates, c)
	}
	return snap, rows.Err()
}

// Save replaces the snapshot in one transaction.
func (s *SignalStore) Save(ctx context.Context, candidates []domain.TokenCandidate) error {
	tx, err := s.d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM signal_candidates`); err != nil {
		return fmt.Errorf("clear candidates: %w", err)
	}
	for i, c := range candidates {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode candidate %s: %w", c.Token, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO signal_candidates (position, token, payload) VALUES (?, ?, ?)`,
			i, c.Token, string(payload)); err != nil {
			return fmt.Errorf("insert candidate %s: %w", c.Token, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO signal_meta (id, scanned_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET scanned_at = excluded.scanned_at`,
		s.d.now().UnixNano()); err != nil {
		return fmt.Errorf("write signal meta: %w", err)
	}
	return tx.Commit()
}

// WalletStore implements storage.WalletStore.
type WalletStore struct{ d *DB }

// List returns wallets in insertion order.
func (s *WalletStore) List(ctx context.Context) ([]domain.TrackedWallet, error) {
	rows, err := s.d.db.QueryContext(ctx, `SELECT address, name, added_at FROM tracked_wallets ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query wallets: %w", err)
	}
	defer rows.Close()

	wallets := []domain.TrackedWallet{}
	for rows.Next() {
		var w domain.TrackedWallet
		if err := rows.Scan(&w.Address, &w.Name, &w.AddedAt); err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// Insert adds a wallet. Returns ErrDuplicateKey if the address exists.
func (s *WalletStore) Insert(ctx context.Context, w domain.TrackedWallet) error {
	if w.Address == "" {
		return storage.ErrInvalidInput
	}
	res, err := s.d.db.ExecContext(ctx, `
		INSERT INTO tracked_wallets (address, name, added_at) VALUES (?, ?, ?)
		ON CONFLICT(address) DO NOTHING`,
		w.Address, w.Name, w.AddedAt)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrDuplicateKey
	}
	return nil
}

// Delete removes a wallet. Returns ErrNotFound if the address is absent.
func (s *WalletStore) Delete(ctx context.Context, address string) error {
	res, err := s.d.db.ExecContext(ctx, `DELETE FROM tracked_wallets WHERE address = ?`, address)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// TrackerResultStore implements storage.TrackerResultStore.
type TrackerResultStore struct{ d *DB }

// Load returns stored results, or nil when none exist.
func (s *TrackerResultStore) Load(ctx context.Context) ([]domain.TrackedScanResult, error) {
	rows, err := s.d.db.QueryContext(ctx, `SELECT payload FROM tracker_results ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query tracker results: %w", err)
	}
	defer rows.Close()

	var results []domain.TrackedScanResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r domain.TrackedScanResult
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode tracker result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Save replaces the stored results.
func (s *TrackerResultStore) Save(ctx context.Context, results []domain.TrackedScanResult) error {
	tx, err := s.d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM tracker_results`); err != nil {
		return fmt.Errorf("clear tracker results: %w", err)
	}
	for i, r := range results {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode tracker result: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tracker_results (position, payload) VALUES (?, ?)`, i, string(payload)); err != nil {
			return fmt.Errorf("insert tracker result: %w", err)
		}
	}
	return tx.Commit()
}

// PurchaseArchive implements storage.PurchaseArchive.
type PurchaseArchive struct{ d *DB }

// InsertBulk appends one run's events. A run ID may be written once.
func (a *PurchaseArchive) InsertBulk(ctx context.Context, runID string, events []domain.PurchaseEvent) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := a.d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		INSERT INTO scan_runs (run_id, archived_at) VALUES (?, ?)
		ON CONFLICT(run_id) DO NOTHING`, runID, a.d.now().Unix())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrDuplicateKey
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO purchases (run_id, token, wallet, signature, block_time, amount)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, runID, e.Token, e.Wallet, e.Signature, e.BlockTime, e.AmountIncrease.String()); err != nil {
			return fmt.Errorf("insert purchase %s: %w", e.Signature, err)
		}
	}
	return tx.Commit()
}

// GetByToken returns archived events for token, ordered by block time ASC.
func (a *PurchaseArchive) GetByToken(ctx context.Context, token string) ([]domain.PurchaseEvent, error) {
	rows, err := a.d.db.QueryContext(ctx, `
		SELECT token, wallet, signature, block_time, amount
		FROM purchases WHERE token = ?
		ORDER BY block_time, rowid`, token)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	events := []domain.PurchaseEvent{}
	for rows.Next() {
		var (
			e      domain.PurchaseEvent
			amount string
		)
		if err := rows.Scan(&e.Token, &e.Wallet, &e.Signature, &e.BlockTime, &amount); err != nil {
			return nil, err
		}
		if e.AmountIncrease, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		e.PurchaseTime = domain.FormatUnix(e.BlockTime)
		events = append(events, e)
	}
	return events, rows.Err()
}
