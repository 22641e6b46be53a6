package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/solana"
	"solana-copurchase/internal/solana/stub"
)

func newTestAggregator(rpc *stub.RPCClient, cfg Config) *Aggregator {
	return NewAggregator(newTestScanner(rpc), rpc, cfg, zerolog.Nop())
}

// threeWallets sets up W1 and W2 buying TKN1, and W3 buying TKN2.
func threeWallets() *stub.RPCClient {
	rpc := stub.NewRPCClient()
	now := testNow.Unix()
	rpc.AddSignatures("W1", []solana.SignatureInfo{sigInfo("w1a", now-100)})
	rpc.AddSignatures("W2", []solana.SignatureInfo{sigInfo("w2a", now-50)})
	rpc.AddSignatures("W3", []solana.SignatureInfo{sigInfo("w3a", now-10)})
	buy(rpc, "W1", "w1a", "TKN1", now-100)
	buy(rpc, "W2", "w2a", "TKN1", now-50)
	buy(rpc, "W3", "w3a", "TKN2", now-10)
	return rpc
}

func TestAggregate_Scenario(t *testing.T) {
	rpc := threeWallets()
	now := testNow.Unix()
	rpc.AddSignatures("TKN1", []solana.SignatureInfo{sigInfo("newest", now-100), sigInfo("mint", now-86400)})

	res := newTestAggregator(rpc, DefaultConfig()).Aggregate(context.Background(), []string{"W1", "W2", "W3"})

	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	assert.Equal(t, "TKN1", c.Token)
	assert.Equal(t, 2, c.WalletCount)
	assert.Len(t, c.Wallets, 2)
	assert.Contains(t, c.Wallets, "W1")
	assert.Contains(t, c.Wallets, "W2")
	require.NotNil(t, c.TokenTimestamp)
	assert.Equal(t, now-86400, *c.TokenTimestamp)
	assert.Equal(t, "2023-11-13 22:13:20", c.TokenFirstSeen)

	w1 := c.Wallets["W1"]
	require.NotNil(t, w1.BlockTime)
	assert.Equal(t, now-100, *w1.BlockTime)
	assert.Equal(t, "2023-11-14 22:11:40", w1.PurchaseTime)

	assert.Len(t, res.Purchases, 3)
	assert.Equal(t, 3, res.WalletsScanned)
}

func TestAggregate_CreationTimeFallsBackToEarliestPurchase(t *testing.T) {
	rpc := threeWallets()

	res := newTestAggregator(rpc, DefaultConfig()).Aggregate(context.Background(), []string{"W1", "W2"})

	require.Len(t, res.Candidates, 1)
	require.NotNil(t, res.Candidates[0].TokenTimestamp)
	assert.Equal(t, testNow.Unix()-100, *res.Candidates[0].TokenTimestamp)
}

func TestAggregate_CreationTimeWithoutMetadataClient(t *testing.T) {
	rpc := threeWallets()
	agg := NewAggregator(newTestScanner(rpc), nil, DefaultConfig(), zerolog.Nop())

	res := agg.Aggregate(context.Background(), []string{"W1", "W2"})
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, testNow.Unix()-100, *res.Candidates[0].TokenTimestamp)
}

func TestAggregate_ThresholdProperty(t *testing.T) {
	rpc := stub.NewRPCClient()
	now := testNow.Unix()
	// A: 3 wallets, B: 2 wallets, C: 1 wallet
	plan := map[string][]string{
		"W1": {"A", "B", "C"},
		"W2": {"A", "B"},
		"W3": {"A"},
	}
	for wallet, tokens := range plan {
		var sigs []solana.SignatureInfo
		for _, tok := range tokens {
			sig := wallet + "-" + tok
			sigs = append(sigs, sigInfo(sig, now-10))
			buy(rpc, wallet, sig, tok, now-10)
		}
		rpc.AddSignatures(wallet, sigs)
	}
	wallets := []string{"W1", "W2", "W3"}

	for k, want := range map[int][]string{1: {"A", "B", "C"}, 2: {"A", "B"}, 3: {"A"}, 4: nil} {
		cfg := DefaultConfig()
		cfg.Threshold = k
		res := newTestAggregator(rpc, cfg).Aggregate(context.Background(), wallets)

		var got []string
		for _, c := range res.Candidates {
			got = append(got, c.Token)
			assert.Equal(t, len(c.Wallets), c.WalletCount)
			assert.Equal(t, len(plan)-(map[string]int{"A": 0, "B": 1, "C": 2}[c.Token]), c.WalletCount)
		}
		assert.Equal(t, want, got, "threshold %d", k)
	}
}

func TestAggregate_EarliestPurchasePerWallet(t *testing.T) {
	rpc := stub.NewRPCClient()
	now := testNow.Unix()
	rpc.AddSignatures("W1", []solana.SignatureInfo{sigInfo("late", now-10), sigInfo("early", now-500)})
	rpc.AddSignatures("W2", []solana.SignatureInfo{sigInfo("w2", now-20)})
	buy(rpc, "W1", "late", "T", now-10)
	buy(rpc, "W1", "early", "T", now-500)
	buy(rpc, "W2", "w2", "T", now-20)

	res := newTestAggregator(rpc, DefaultConfig()).Aggregate(context.Background(), []string{"W1", "W2"})

	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	assert.Equal(t, 2, c.WalletCount)
	assert.Equal(t, now-500, *c.Wallets["W1"].BlockTime)
}

func TestAggregate_DuplicateWalletsCountOnce(t *testing.T) {
	rpc := threeWallets()
	res := newTestAggregator(rpc, DefaultConfig()).Aggregate(context.Background(), []string{"W1", "W1", "W3"})

	assert.Empty(t, res.Candidates)
	assert.Equal(t, 2, res.WalletsScanned)
	assert.Equal(t, 2, rpc.CallCount("getSignaturesForAddress"))
}

func TestAggregate_SortOrder(t *testing.T) {
	rpc := stub.NewRPCClient()
	now := testNow.Unix()
	plan := map[string][]string{
		"W1": {"ZED", "BBB", "AAA"},
		"W2": {"ZED", "BBB", "AAA"},
		"W3": {"ZED"},
	}
	for wallet, tokens := range plan {
		var sigs []solana.SignatureInfo
		for _, tok := range tokens {
			sig := wallet + tok
			sigs = append(sigs, sigInfo(sig, now))
			buy(rpc, wallet, sig, tok, now)
		}
		rpc.AddSignatures(wallet, sigs)
	}

	res := newTestAggregator(rpc, DefaultConfig()).Aggregate(context.Background(), []string{"W1", "W2", "W3"})

	var order []string
	for _, c := range res.Candidates {
		order = append(order, c.Token)
	}
	assert.Equal(t, []string{"ZED", "AAA", "BBB"}, order)
}

func TestAggregate_Idempotent(t *testing.T) {
	rpc := threeWallets()
	agg := newTestAggregator(rpc, DefaultConfig())
	wallets := []string{"W1", "W2", "W3"}

	first := agg.Aggregate(context.Background(), wallets)
	second := agg.Aggregate(context.Background(), wallets)
	assert.Equal(t, first.Candidates, second.Candidates)
}

func TestAggregate_ConcurrentMatchesSequential(t *testing.T) {
	rpc := threeWallets()
	wallets := []string{"W1", "W2", "W3"}

	seq := newTestAggregator(rpc, DefaultConfig()).Aggregate(context.Background(), wallets)

	cfg := DefaultConfig()
	cfg.Concurrency = 3
	par := newTestAggregator(rpc, cfg).Aggregate(context.Background(), wallets)

	assert.Equal(t, seq.Candidates, par.Candidates)
	assert.Equal(t, seq.Purchases, par.Purchases)
}

func TestAggregate_EnrichMetadata(t *testing.T) {
	rpc := threeWallets()
	rpc.Assets["TKN1"] = &solana.Asset{ID: "TKN1", Name: "Token One", Symbol: "ONE"}

	cfg := DefaultConfig()
	cfg.EnrichMetadata = true
	res := newTestAggregator(rpc, cfg).Aggregate(context.Background(), []string{"W1", "W2"})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "Token One", res.Candidates[0].Name)
	assert.Equal(t, "ONE", res.Candidates[0].Symbol)
}

// failingScanner stands in for a wallet whose upstream calls all failed.
type failingScanner struct {
	inner Scanner
	fail  string
}

func (f failingScanner) Scan(ctx context.Context, wallet string, lookback time.Duration) []domain.PurchaseEvent {
	if wallet == f.fail {
		return nil
	}
	return f.inner.Scan(ctx, wallet, lookback)
}

func TestAggregate_FailedWalletExcluded(t *testing.T) {
	rpc := threeWallets()
	scanner := failingScanner{inner: newTestScanner(rpc), fail: "W2"}
	agg := NewAggregator(scanner, rpc, DefaultConfig(), zerolog.Nop())

	res := agg.Aggregate(context.Background(), []string{"W1", "W2", "W3"})
	assert.Empty(t, res.Candidates)
	assert.Len(t, res.Purchases, 2)
}
