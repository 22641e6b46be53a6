package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copurchase/internal/discovery"
	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/holdings"
	"solana-copurchase/internal/pacing"
	"solana-copurchase/internal/solana"
	"solana-copurchase/internal/solana/stub"
	"solana-copurchase/internal/storage/memory"
)

const testNow = int64(1700000000)

func i64(v int64) *int64 { return &v }

// buy registers wallet buying mint at blockTime and lists the signature.
func buy(rpc *stub.RPCClient, wallet, sig, mint string, blockTime int64) {
	rpc.AddTransaction(&solana.Transaction{
		Signature: sig,
		BlockTime: i64(blockTime),
		Meta: &solana.TransactionMeta{
			PostTokenBalances: []solana.TokenBalance{
				{Mint: mint, Owner: wallet, Amount: decimal.NewFromInt(100)},
			},
		},
	})
	sigs := rpc.Signatures[wallet]
	rpc.AddSignatures(wallet, append(sigs, solana.SignatureInfo{Signature: sig, BlockTime: i64(blockTime)}))
}

type fixture struct {
	rpc     *stub.RPCClient
	signals *memory.SignalStore
	archive *memory.PurchaseArchive
	orch    *Orchestrator
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	rpc := stub.NewRPCClient()
	scanner := discovery.NewWalletScanner(rpc,
		discovery.WithPacing(pacing.None()),
		discovery.WithClock(func() time.Time { return time.Unix(testNow, 0) }),
	)
	agg := discovery.NewAggregator(scanner, rpc, discovery.DefaultConfig(), zerolog.Nop())
	verifier := holdings.NewVerifier(rpc, holdings.WithPacing(pacing.None()))

	f := &fixture{
		rpc:     rpc,
		signals: memory.NewSignalStore(),
		archive: memory.NewPurchaseArchive(),
	}
	opts.Aggregator = agg
	opts.Holdings = verifier
	opts.Signals = f.signals
	if opts.Archive == nil {
		opts.Archive = f.archive
	}
	opts.Logger = zerolog.Nop()
	f.orch = New(opts)
	return f
}

// seedScenario: W1 and W2 buy T, W3 buys U.
func seedScenario(rpc *stub.RPCClient) {
	buy(rpc, "W1", "s1", "T", testNow-3600)
	buy(rpc, "W2", "s2", "T", testNow-1800)
	buy(rpc, "W3", "s3", "U", testNow-600)
}

type recordingNotifier struct {
	ids []string
	err error
}

func (r *recordingNotifier) Name() string { return "recording" }
func (r *recordingNotifier) Publish(_ context.Context, id string, _ []domain.TokenCandidate) error {
	r.ids = append(r.ids, id)
	return r.err
}
func (r *recordingNotifier) Close() error { return nil }

func TestRunScan_Scenario(t *testing.T) {
	n := &recordingNotifier{}
	f := newFixture(t, Options{Wallets: []string{"W1", "W2", "W3"}, Notifier: n})
	seedScenario(f.rpc)

	res, err := f.orch.RunScan(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	assert.Equal(t, "T", c.Token)
	assert.Equal(t, 2, c.WalletCount)
	assert.Contains(t, c.Wallets, "W1")
	assert.Contains(t, c.Wallets, "W2")
	assert.Equal(t, domain.FormatUnix(testNow-3600), c.TokenFirstSeen)
	assert.Equal(t, 3, res.WalletsScanned)
	assert.Equal(t, 3, res.Purchases)
	assert.True(t, res.Changed)
	assert.NotEmpty(t, res.RunID)
	assert.NotEmpty(t, res.SnapshotID)

	snap := f.orch.Signals(context.Background())
	require.Len(t, snap.Candidates, 1)
	assert.Equal(t, "T", snap.Candidates[0].Token)

	archived, err := f.archive.GetByToken(context.Background(), "U")
	require.NoError(t, err)
	assert.Len(t, archived, 1)

	assert.Equal(t, []string{res.SnapshotID}, n.ids)
}

func TestRunScan_IdempotentAndChangeDetection(t *testing.T) {
	n := &recordingNotifier{}
	f := newFixture(t, Options{Wallets: []string{"W1", "W2", "W3"}, Notifier: n})
	seedScenario(f.rpc)
	ctx := context.Background()

	first, err := f.orch.RunScan(ctx)
	require.NoError(t, err)
	second, err := f.orch.RunScan(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Candidates, second.Candidates)
	assert.Equal(t, first.SnapshotID, second.SnapshotID)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.False(t, second.Changed)
	assert.Len(t, n.ids, 1)
	assert.Equal(t, 2, f.archive.Runs())
}

func TestRunScan_SeedsChangeDetectorFromStore(t *testing.T) {
	f := newFixture(t, Options{Wallets: []string{"W1", "W2", "W3"}})
	seedScenario(f.rpc)
	ctx := context.Background()

	first, err := f.orch.RunScan(ctx)
	require.NoError(t, err)

	// A fresh orchestrator over the same store sees the same snapshot as unchanged.
	again := New(Options{
		Aggregator: f.orch.aggregator,
		Holdings:   f.orch.holdings,
		Signals:    f.signals,
		Wallets:    []string{"W1", "W2", "W3"},
		Logger:     zerolog.Nop(),
	})
	res, err := again.RunScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.SnapshotID, res.SnapshotID)
	assert.False(t, res.Changed)
}

func TestRunScan_NotifierFailureIsNotFatal(t *testing.T) {
	n := &recordingNotifier{err: errors.New("sink down")}
	f := newFixture(t, Options{Wallets: []string{"W1", "W2"}, Notifier: n})
	seedScenario(f.rpc)

	res, err := f.orch.RunScan(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 1)
	assert.Len(t, n.ids, 1)
}

func TestRunScan_EmptyWalletSet(t *testing.T) {
	n := &recordingNotifier{}
	f := newFixture(t, Options{Notifier: n})

	res, err := f.orch.RunScan(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res.Candidates)
	assert.Empty(t, res.Candidates)
	assert.Empty(t, n.ids)

	snap := f.orch.Signals(context.Background())
	assert.Empty(t, snap.Candidates)
	assert.False(t, snap.ScannedAt.IsZero())
}

type staticRegistry struct {
	addrs []string
	err   error
}

func (s staticRegistry) Addresses(context.Context) ([]string, error) { return s.addrs, s.err }

func TestRunScan_UsesRegistry(t *testing.T) {
	f := newFixture(t, Options{
		Wallets:     []string{"W3"},
		Registry:    staticRegistry{addrs: []string{"W1", "W2"}},
		UseRegistry: true,
	})
	seedScenario(f.rpc)

	res, err := f.orch.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.WalletsScanned)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "T", res.Candidates[0].Token)
}

func TestRunScan_RegistryFailureScansNothing(t *testing.T) {
	f := newFixture(t, Options{
		Registry:    staticRegistry{err: errors.New("unreadable")},
		UseRegistry: true,
	})
	seedScenario(f.rpc)

	res, err := f.orch.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.WalletsScanned)
	assert.Empty(t, res.Candidates)
}

func TestCheckHoldings(t *testing.T) {
	f := newFixture(t, Options{Wallets: []string{"W1", "W2", "W3"}})
	seedScenario(f.rpc)
	ctx := context.Background()

	_, err := f.orch.CheckHoldings(ctx, "T")
	assert.ErrorIs(t, err, ErrNoScanData)

	_, err = f.orch.RunScan(ctx)
	require.NoError(t, err)

	_, err = f.orch.CheckHoldings(ctx, "U")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	f.rpc.AddTokenAccounts("W1", []solana.TokenAccount{{Pubkey: "A1", Mint: "T", Owner: "W1", Amount: decimal.NewFromInt(5)}})
	f.rpc.AddTokenAccounts("W2", []solana.TokenAccount{{Pubkey: "A2", Mint: "T", Owner: "W2", Amount: decimal.Zero}})

	report, err := f.orch.CheckHoldings(ctx, "T")
	require.NoError(t, err)
	assert.Equal(t, "T", report.Token)
	assert.Equal(t, 2, report.TotalWallets)
	assert.Equal(t, 1, report.StillHolding)
	assert.Equal(t, 1, report.Sold)
	assert.Equal(t, domain.StatusHolding, report.Wallets["W1"].Status)
	assert.Equal(t, domain.StatusSold, report.Wallets["W2"].Status)
	assert.Equal(t, domain.FormatUnix(testNow-3600), report.Wallets["W1"].PurchaseTime)
}

type brokenSignals struct{}

func (brokenSignals) Load(context.Context) (*domain.SignalSnapshot, error) {
	return nil, errors.New("corrupt")
}
func (brokenSignals) Save(context.Context, []domain.TokenCandidate) error {
	return errors.New("read-only")
}

func TestStoreFailures(t *testing.T) {
	o := New(Options{
		Aggregator: discovery.NewAggregator(discovery.NewWalletScanner(stub.NewRPCClient(), discovery.WithPacing(pacing.None())), nil, discovery.DefaultConfig(), zerolog.Nop()),
		Signals:    brokenSignals{},
		Logger:     zerolog.Nop(),
	})
	ctx := context.Background()

	snap := o.Signals(ctx)
	assert.NotNil(t, snap.Candidates)
	assert.Empty(t, snap.Candidates)

	_, err := o.CheckHoldings(ctx, "T")
	assert.ErrorIs(t, err, ErrNoScanData)

	_, err = o.RunScan(ctx)
	assert.Error(t, err)
}

func TestRunScan_CancelledContextRunsToCompletion(t *testing.T) {
	f := newFixture(t, Options{Wallets: []string{"W1", "W2", "W3"}})
	seedScenario(f.rpc)

	first, err := f.orch.RunScan(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Candidates, 1)

	// Pacing makes the scanner wait on the limiter, which fails fast on a
	// cancelled context unless the scan is detached from it.
	f.orch.aggregator = discovery.NewAggregator(
		discovery.NewWalletScanner(f.rpc,
			discovery.WithPacing(pacing.Policy{Delay: time.Millisecond}),
			discovery.WithClock(func() time.Time { return time.Unix(testNow, 0) }),
		),
		f.rpc, discovery.DefaultConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.orch.RunScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Candidates, res.Candidates)
	assert.Equal(t, first.SnapshotID, res.SnapshotID)
	assert.False(t, res.Changed)

	snap := f.orch.Signals(context.Background())
	require.Len(t, snap.Candidates, 1)
	assert.Equal(t, "T", snap.Candidates[0].Token)
}
