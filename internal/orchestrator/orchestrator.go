// Package orchestrator runs co-purchase scans end to end.
// Flow: wallet set → aggregation → snapshot save → archive → notify
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-copurchase/internal/discovery"
	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/idhash"
	"solana-copurchase/internal/notify"
	"solana-copurchase/internal/observability"
	"solana-copurchase/internal/storage"
)

// Lookup errors returned by CheckHoldings.
var (
	ErrNoScanData    = errors.New("no scan data found")
	ErrTokenNotFound = errors.New("token not found")
)

// Aggregator produces candidates for a wallet set.
type Aggregator interface {
	Aggregate(ctx context.Context, wallets []string) *discovery.Result
}

// HoldingsChecker classifies candidate wallets.
type HoldingsChecker interface {
	CheckHoldings(ctx context.Context, token string, wallets map[string]domain.WalletPurchase) *domain.HoldingsReport
}

// WalletSource lists registry addresses.
type WalletSource interface {
	Addresses(ctx context.Context) ([]string, error)
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Aggregator Aggregator
	Holdings   HoldingsChecker
	Signals    storage.SignalStore

	// Wallet set: Wallets, or Registry when UseRegistry is set.
	Wallets     []string
	Registry    WalletSource
	UseRegistry bool

	// Optional sinks
	Archive  storage.PurchaseArchive
	Notifier notify.Notifier

	Logger zerolog.Logger
}

// Orchestrator coordinates scans and snapshot reads.
type Orchestrator struct {
	aggregator  Aggregator
	holdings    HoldingsChecker
	signals     storage.SignalStore
	wallets     []string
	registry    WalletSource
	useRegistry bool
	archive     storage.PurchaseArchive
	notifier    notify.Notifier
	logger      zerolog.Logger

	now      func() time.Time
	newRunID func() string

	// mu serializes scans; lastID is the digest of the stored snapshot.
	mu       sync.Mutex
	lastID   string
	lastInit bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		aggregator:  opts.Aggregator,
		holdings:    opts.Holdings,
		signals:     opts.Signals,
		wallets:     append([]string(nil), opts.Wallets...),
		registry:    opts.Registry,
		useRegistry: opts.UseRegistry,
		archive:     opts.Archive,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		now:         time.Now,
		newRunID:    uuid.NewString,
	}
}

// ScanResult is the outcome of one scan run.
type ScanResult struct {
	RunID          string                  `json:"run_id"`
	SnapshotID     string                  `json:"snapshot_id"`
	Candidates     []domain.TokenCandidate `json:"candidates"`
	Changed        bool                    `json:"changed"`
	WalletsScanned int                     `json:"wallets_scanned"`
	Purchases      int                     `json:"purchases"`
}

// RunScan scans the wallet set and replaces the stored snapshot. Archive and
// notification failures are logged; only a failed save fails the run.
// A started scan runs to completion: cancelling ctx does not abort it, so a
// partial candidate list never replaces the stored snapshot.
func (o *Orchestrator) RunScan(ctx context.Context) (*ScanResult, error) {
	ctx = context.WithoutCancel(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()

	start := o.now()
	runID := o.newRunID()
	log := o.logger.With().Str("run_id", runID).Logger()

	wallets := o.walletSet(ctx)
	log.Info().Int("wallets", len(wallets)).Bool("registry", o.useRegistry).Msg("scan started")

	agg := o.aggregator.Aggregate(ctx, wallets)
	candidates := agg.Candidates
	if candidates == nil {
		candidates = []domain.TokenCandidate{}
	}

	snapshotID, err := idhash.ComputeSnapshotID(candidates)
	if err != nil {
		observability.RecordScanRun("copurchase", "error", o.since(start))
		return nil, fmt.Errorf("compute snapshot id: %w", err)
	}

	o.initLastID(ctx)
	changed := snapshotID != o.lastID

	if err := o.signals.Save(ctx, candidates); err != nil {
		observability.RecordScanRun("copurchase", "error", o.since(start))
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	o.lastID = snapshotID

	if o.archive != nil && len(agg.Purchases) > 0 {
		if err := o.archive.InsertBulk(ctx, runID, agg.Purchases); err != nil {
			log.Warn().Err(err).Int("purchases", len(agg.Purchases)).Msg("archive purchases failed")
		}
	}

	if o.notifier != nil && changed && len(candidates) > 0 {
		if err := o.notifier.Publish(ctx, snapshotID, candidates); err != nil {
			log.Warn().Err(err).Str("snapshot_id", snapshotID).Msg("notification failed")
		}
	}

	observability.RecordScanRun("copurchase", "ok", o.since(start))
	observability.RecordCandidates(len(candidates), o.now().Unix())

	log.Info().
		Int("candidates", len(candidates)).
		Str("snapshot_id", snapshotID).
		Bool("changed", changed).
		Dur("elapsed", o.now().Sub(start)).
		Msg("scan finished")

	return &ScanResult{
		RunID:          runID,
		SnapshotID:     snapshotID,
		Candidates:     candidates,
		Changed:        changed,
		WalletsScanned: agg.WalletsScanned,
		Purchases:      len(agg.Purchases),
	}, nil
}

// Signals returns the stored snapshot; an unreadable store reads as empty.
func (o *Orchestrator) Signals(ctx context.Context) *domain.SignalSnapshot {
	snap, err := o.signals.Load(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("signal store unreadable, treating as empty")
		return &domain.SignalSnapshot{Candidates: []domain.TokenCandidate{}}
	}
	return snap
}

// CheckHoldings verifies the wallets of token's candidate in the stored snapshot.
func (o *Orchestrator) CheckHoldings(ctx context.Context, token string) (*domain.HoldingsReport, error) {
	snap, err := o.signals.Load(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("signal store unreadable")
		return nil, ErrNoScanData
	}
	if snap.ScannedAt.IsZero() && len(snap.Candidates) == 0 {
		return nil, ErrNoScanData
	}

	candidate, ok := snap.Find(token)
	if !ok {
		return nil, ErrTokenNotFound
	}

	report := o.holdings.CheckHoldings(ctx, token, candidate.Wallets)
	observability.RecordScanRun("holdings", "ok", 0)
	return report, nil
}

// walletSet resolves the wallets to scan. A registry read failure yields none.
func (o *Orchestrator) walletSet(ctx context.Context) []string {
	if !o.useRegistry || o.registry == nil {
		return o.wallets
	}
	addrs, err := o.registry.Addresses(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("wallet registry unreadable, scanning no wallets")
		return nil
	}
	return addrs
}

// initLastID seeds the change detector from the stored snapshot once.
func (o *Orchestrator) initLastID(ctx context.Context) {
	if o.lastInit {
		return
	}
	o.lastInit = true

	snap, err := o.signals.Load(ctx)
	if err != nil || snap.ScannedAt.IsZero() {
		return
	}
	if id, err := idhash.ComputeSnapshotID(snap.Candidates); err == nil {
		o.lastID = id
	}
}

func (o *Orchestrator) since(start time.Time) float64 {
	return o.now().Sub(start).Seconds()
}
