package idhash

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copurchase/internal/domain"
)

func int64p(v int64) *int64 { return &v }

func candidates() []domain.TokenCandidate {
	return []domain.TokenCandidate{{
		Token:          "MintA",
		WalletCount:    2,
		TokenFirstSeen: domain.FormatUnix(1700000000),
		TokenTimestamp: int64p(1700000000),
		Wallets: map[string]domain.WalletPurchase{
			"W1": {PurchaseTime: domain.FormatUnix(1700000100), BlockTime: int64p(1700000100)},
			"W2": {PurchaseTime: domain.FormatUnix(1700000200), BlockTime: int64p(1700000200)},
		},
	}}
}

func TestComputeSnapshotID_Deterministic(t *testing.T) {
	first, err := ComputeSnapshotID(candidates())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := ComputeSnapshotID(candidates())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	raw, err := base58.Decode(first)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestComputeSnapshotID_SensitiveToContent(t *testing.T) {
	base, err := ComputeSnapshotID(candidates())
	require.NoError(t, err)

	changed := candidates()
	changed[0].Wallets["W2"] = domain.WalletPurchase{PurchaseTime: domain.FormatUnix(1700000201), BlockTime: int64p(1700000201)}
	other, err := ComputeSnapshotID(changed)
	require.NoError(t, err)
	assert.NotEqual(t, base, other)
}

func TestComputeSnapshotID_NilEqualsEmpty(t *testing.T) {
	a, err := ComputeSnapshotID(nil)
	require.NoError(t, err)
	b, err := ComputeSnapshotID([]domain.TokenCandidate{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
