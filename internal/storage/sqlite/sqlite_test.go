package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/storage"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func int64p(v int64) *int64 { return &v }

func TestSignalStore_EmptyThenSave(t *testing.T) {
	db := newTestDB(t)
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return fixed }
	ctx := context.Background()
	store := db.Signals()

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Candidates)
	assert.True(t, snap.ScannedAt.IsZero())

	first := []domain.TokenCandidate{
		{Token: "B", WalletCount: 3, TokenFirstSeen: domain.UnknownTime, Wallets: map[string]domain.WalletPurchase{}},
		{Token: "A", WalletCount: 2, TokenTimestamp: int64p(100), TokenFirstSeen: domain.FormatUnix(100),
			Wallets: map[string]domain.WalletPurchase{"W1": {PurchaseTime: domain.FormatUnix(150), BlockTime: int64p(150)}}},
	}
	require.NoError(t, store.Save(ctx, first))

	snap, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Candidates, 2)
	assert.Equal(t, "B", snap.Candidates[0].Token)
	assert.Equal(t, "A", snap.Candidates[1].Token)
	assert.Nil(t, snap.Candidates[0].TokenTimestamp)
	assert.Equal(t, int64(150), *snap.Candidates[1].Wallets["W1"].BlockTime)
	assert.Equal(t, fixed, snap.ScannedAt)

	require.NoError(t, store.Save(ctx, nil))
	snap, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Candidates)
	assert.False(t, snap.ScannedAt.IsZero())
}

func TestWalletStore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := db.Wallets()

	require.NoError(t, store.Insert(ctx, domain.TrackedWallet{Address: "Z", Name: "Wallet 1", AddedAt: "2024-01-01 00:00:00"}))
	require.NoError(t, store.Insert(ctx, domain.TrackedWallet{Address: "A", Name: "Wallet 2", AddedAt: "2024-01-01 00:00:01"}))
	assert.ErrorIs(t, store.Insert(ctx, domain.TrackedWallet{Address: "Z"}), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.Insert(ctx, domain.TrackedWallet{}), storage.ErrInvalidInput)

	wallets, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, "Z", wallets[0].Address)
	assert.Equal(t, "A", wallets[1].Address)

	require.NoError(t, store.Delete(ctx, "Z"))
	assert.ErrorIs(t, store.Delete(ctx, "Z"), storage.ErrNotFound)
}

func TestTrackerResultStore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := db.TrackerResults()

	results, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, results)

	in := []domain.TrackedScanResult{
		{WalletAddress: "W1", WalletName: "one", TokensBought: []domain.TokenSummary{{Token: "A", TotalBuys: 1}}, TotalTokens: 1},
		{WalletAddress: "W2", WalletName: "two", TokensBought: []domain.TokenSummary{}, TotalTokens: 0},
	}
	require.NoError(t, store.Save(ctx, in))
	require.NoError(t, store.Save(ctx, in[1:]))

	results, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "W2", results[0].WalletAddress)
}

func TestPurchaseArchive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	archive := db.Purchases()

	events := []domain.PurchaseEvent{
		{Token: "A", Wallet: "W2", Signature: "s2", BlockTime: 200, AmountIncrease: decimal.RequireFromString("1.5")},
		{Token: "A", Wallet: "W1", Signature: "s1", BlockTime: 100, AmountIncrease: decimal.RequireFromString("0.000001")},
		{Token: "B", Wallet: "W1", Signature: "s3", BlockTime: 150, AmountIncrease: decimal.NewFromInt(7)},
	}
	require.NoError(t, archive.InsertBulk(ctx, "run-1", events))
	assert.ErrorIs(t, archive.InsertBulk(ctx, "run-1", events), storage.ErrDuplicateKey)
	require.NoError(t, archive.InsertBulk(ctx, "run-2", events[:1]))

	got, err := archive.GetByToken(ctx, "A")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "s1", got[0].Signature)
	assert.True(t, got[0].AmountIncrease.Equal(decimal.RequireFromString("0.000001")))
	assert.Equal(t, domain.FormatUnix(100), got[0].PurchaseTime)
	assert.Equal(t, int64(200), got[2].BlockTime)
}

func TestOpen_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "copurchase.db")
	ctx := context.Background()

	db, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.Wallets().Insert(ctx, domain.TrackedWallet{Address: "A", Name: "n"}))
	require.NoError(t, db.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	wallets, err := reopened.Wallets().List(ctx)
	require.NoError(t, err)
	assert.Len(t, wallets, 1)
}
