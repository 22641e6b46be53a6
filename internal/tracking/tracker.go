package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solana-copurchase/internal/discovery"
	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/storage"
)

// MsgNoWallets is returned by ScanAll on an empty registry.
const MsgNoWallets = "No custom wallets to scan"

// ScanOutcome reports a tracked-wallet scan.
type ScanOutcome struct {
	Success bool                       `json:"success"`
	Message string                     `json:"message"`
	Results []domain.TrackedScanResult `json:"results"`
}

// Tracker scans every registry wallet and summarizes its buys per token.
type Tracker struct {
	wallets storage.WalletStore
	results storage.TrackerResultStore
	scanner discovery.Scanner
	now     func() time.Time
	logger  zerolog.Logger
}

// NewTracker creates a Tracker.
func NewTracker(wallets storage.WalletStore, results storage.TrackerResultStore, scanner discovery.Scanner, logger zerolog.Logger) *Tracker {
	return &Tracker{
		wallets: wallets,
		results: results,
		scanner: scanner,
		now:     time.Now,
		logger:  logger,
	}
}

// ScanAll scans each registry wallet over lookback and replaces the stored results.
func (t *Tracker) ScanAll(ctx context.Context, lookback time.Duration) (*ScanOutcome, error) {
	wallets, err := t.wallets.List(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("wallet registry unreadable, treating as empty")
		wallets = nil
	}
	if len(wallets) == 0 {
		return &ScanOutcome{Message: MsgNoWallets, Results: []domain.TrackedScanResult{}}, nil
	}

	t.logger.Info().Int("wallets", len(wallets)).Dur("lookback", lookback).Msg("scanning tracked wallets")

	results := make([]domain.TrackedScanResult, 0, len(wallets))
	for _, w := range wallets {
		name := w.Name
		if name == "" {
			name = "Unknown"
		}
		tokens := Summarize(t.scanner.Scan(ctx, w.Address, lookback))
		results = append(results, domain.TrackedScanResult{
			WalletAddress: w.Address,
			WalletName:    name,
			TokensBought:  tokens,
			TotalTokens:   len(tokens),
			ScannedAt:     domain.FormatTime(t.now()),
		})
	}

	if err := t.results.Save(ctx, results); err != nil {
		return nil, fmt.Errorf("save tracker results: %w", err)
	}
	return &ScanOutcome{Success: true, Message: "Scan completed", Results: results}, nil
}

// Results returns the stored results; an unreadable store reads as empty.
func (t *Tracker) Results(ctx context.Context) []domain.TrackedScanResult {
	results, err := t.results.Load(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("tracker results unreadable, treating as empty")
		return []domain.TrackedScanResult{}
	}
	if results == nil {
		return []domain.TrackedScanResult{}
	}
	return results
}

// Summarize groups one wallet's purchases by token, in first-seen order.
// The first purchase is the one with the earliest block time.
func Summarize(events []domain.PurchaseEvent) []domain.TokenSummary {
	index := make(map[string]int)
	out := []domain.TokenSummary{}
	for _, e := range events {
		i, ok := index[e.Token]
		if !ok {
			index[e.Token] = len(out)
			out = append(out, domain.TokenSummary{
				Token:             e.Token,
				FirstPurchase:     e.PurchaseTime,
				FirstPurchaseTime: e.BlockTime,
			})
			i = len(out) - 1
		}
		s := &out[i]
		s.TotalBuys++
		if e.BlockTime < s.FirstPurchaseTime {
			s.FirstPurchase = e.PurchaseTime
			s.FirstPurchaseTime = e.BlockTime
		}
	}
	return out
}
