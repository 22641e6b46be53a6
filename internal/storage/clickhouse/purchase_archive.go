package clickhouse

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/storage"
)

// PurchaseArchive implements storage.PurchaseArchive using ClickHouse.
type PurchaseArchive struct {
	conn *Conn
}

// NewPurchaseArchive creates a new PurchaseArchive.
func NewPurchaseArchive(conn *Conn) *PurchaseArchive {
	return &PurchaseArchive{conn: conn}
}

var _ storage.PurchaseArchive = (*PurchaseArchive)(nil)

// InsertBulk appends one run's events. MergeTree does not enforce keys, so
// an already archived run ID is rejected by an explicit check.
func (a *PurchaseArchive) InsertBulk(ctx context.Context, runID string, events []domain.PurchaseEvent) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(events) == 0 {
		return nil
	}

	exists, err := a.runExists(ctx, runID)
	if err != nil {
		return fmt.Errorf("check run: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO purchases (
			run_id, token, wallet, signature, block_time, amount
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		if err := batch.Append(runID, e.Token, e.Wallet, e.Signature, e.BlockTime, e.AmountIncrease.String()); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByToken returns archived events for token, ordered by block time ASC.
func (a *PurchaseArchive) GetByToken(ctx context.Context, token string) ([]domain.PurchaseEvent, error) {
	query := `
		SELECT token, wallet, signature, block_time, amount
		FROM purchases
		WHERE token = ?
		ORDER BY block_time ASC, signature ASC, wallet ASC
	`

	rows, err := a.conn.Query(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("get purchases by token: %w", err)
	}
	defer rows.Close()

	events := []domain.PurchaseEvent{}
	for rows.Next() {
		var (
			e      domain.PurchaseEvent
			amount string
		)
		if err := rows.Scan(&e.Token, &e.Wallet, &e.Signature, &e.BlockTime, &amount); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		if e.AmountIncrease, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		e.PurchaseTime = domain.FormatUnix(e.BlockTime)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (a *PurchaseArchive) runExists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := a.conn.QueryRow(ctx, `SELECT count() FROM purchases WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
