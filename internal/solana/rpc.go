package solana

import (
	"context"

	"github.com/shopspring/decimal"
)

// RPCClient defines the Solana calls the scanner needs. Upstream failures
// surface as empty results, never as errors.
type RPCClient interface {
	// GetSignaturesForAddress lists recent signatures for a wallet, newest first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) []SignatureInfo

	// GetTransaction retrieves a jsonParsed transaction. Returns nil if unavailable.
	GetTransaction(ctx context.Context, signature string) *Transaction

	// GetTokenAccountsByOwner lists the owner's token accounts under programID.
	GetTokenAccountsByOwner(ctx context.Context, owner, programID string) []TokenAccount
}

// MetadataClient defines the asset lookups served by the secondary provider.
type MetadataClient interface {
	// GetMintSignatures lists signatures for a token mint, newest first.
	GetMintSignatures(ctx context.Context, mint string, limit int) []SignatureInfo

	// GetAsset retrieves asset metadata. Returns nil if unavailable.
	GetAsset(ctx context.Context, mint string) *Asset
}

// Transaction represents a parsed Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime *int64 // Unix timestamp (seconds), nil if unknown
	Meta      *TransactionMeta
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TokenBalance is one entry of pre/postTokenBalances.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	ProgramID    string
	Amount       decimal.Decimal // UI amount
}
