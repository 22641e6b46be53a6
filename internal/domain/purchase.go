package domain

import "github.com/shopspring/decimal"

// PurchaseEvent is a positive token balance change for one wallet in one transaction.
type PurchaseEvent struct {
	Token          string          // token mint address
	Wallet         string          // wallet that received the tokens
	Signature      string          // transaction signature
	BlockTime      int64           // Unix timestamp (seconds)
	PurchaseTime   string          // BlockTime rendered with TimeLayout
	AmountIncrease decimal.Decimal // post - pre, always > 0
}

// WalletPurchase is the per-wallet record kept inside a TokenCandidate.
type WalletPurchase struct {
	PurchaseTime string `json:"purchase_time"`
	BlockTime    *int64 `json:"block_time"`
}

// NewWalletPurchase builds the record for a purchase event.
func NewWalletPurchase(e PurchaseEvent) WalletPurchase {
	bt := e.BlockTime
	return WalletPurchase{
		PurchaseTime: e.PurchaseTime,
		BlockTime:    &bt,
	}
}
