package discovery

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/observability"
	"solana-copurchase/internal/pacing"
	"solana-copurchase/internal/solana"
)

// DefaultWalletPageSize is how many recent signatures a wallet scan inspects.
const DefaultWalletPageSize = 50

// Scanner scans one wallet for purchases within a lookback window.
type Scanner interface {
	Scan(ctx context.Context, wallet string, lookback time.Duration) []domain.PurchaseEvent
}

// WalletScanner drives signature listing, transaction fetches and extraction
// for one wallet.
//
// Only the newest PageSize signatures are inspected. A busy wallet can have
// in-window purchases beyond that page; they are not seen.
type WalletScanner struct {
	rpc      solana.RPCClient
	pageSize int
	pacing   pacing.Policy
	now      func() time.Time
	logger   zerolog.Logger
}

// ScannerOption configures WalletScanner.
type ScannerOption func(*WalletScanner)

// WithPageSize overrides the signature page size.
func WithPageSize(n int) ScannerOption {
	return func(s *WalletScanner) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithPacing sets the delay policy between transaction fetches.
func WithPacing(p pacing.Policy) ScannerOption {
	return func(s *WalletScanner) {
		s.pacing = p
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ScannerOption {
	return func(s *WalletScanner) {
		s.now = now
	}
}

// WithScannerLogger sets the logger.
func WithScannerLogger(l zerolog.Logger) ScannerOption {
	return func(s *WalletScanner) {
		s.logger = l
	}
}

// NewWalletScanner creates a WalletScanner.
func NewWalletScanner(rpc solana.RPCClient, opts ...ScannerOption) *WalletScanner {
	s := &WalletScanner{
		rpc:      rpc,
		pageSize: DefaultWalletPageSize,
		pacing:   pacing.Default(),
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns the purchases of wallet newer than now-lookback, in
// signature order (newest first).
func (s *WalletScanner) Scan(ctx context.Context, wallet string, lookback time.Duration) []domain.PurchaseEvent {
	cutoff := s.now().Add(-lookback).Unix()
	sigs := s.rpc.GetSignaturesForAddress(ctx, wallet, &solana.SignaturesOpts{Limit: s.pageSize})

	limiter := s.pacing.NewLimiter()
	var events []domain.PurchaseEvent
	fetched := 0
	for _, sig := range sigs {
		if sig.Signature == "" || sig.BlockTime == nil || *sig.BlockTime == 0 || *sig.BlockTime < cutoff {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			s.logger.Warn().Err(err).Str("wallet", wallet).Msg("scan interrupted")
			break
		}
		fetched++
		events = append(events, ExtractBuys(s.rpc.GetTransaction(ctx, sig.Signature), wallet)...)
	}

	observability.RecordWalletScanned(len(events))
	s.logger.Debug().
		Str("wallet", wallet).
		Int("signatures", len(sigs)).
		Int("fetched", fetched).
		Int("purchases", len(events)).
		Msg("wallet scanned")
	return events
}

var _ Scanner = (*WalletScanner)(nil)
