package solana

import "github.com/shopspring/decimal"

// SPL token program IDs.
const (
	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// TokenAccount is a parsed SPL token account.
type TokenAccount struct {
	Pubkey string
	Mint   string
	Owner  string
	Amount decimal.Decimal // UI amount
}

// Asset is the subset of DAS getAsset metadata the scanner uses.
type Asset struct {
	ID     string
	Name   string
	Symbol string
}
