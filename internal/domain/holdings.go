package domain

// HoldingStatus classifies a wallet's current balance of a token.
type HoldingStatus string

const (
	StatusHolding HoldingStatus = "HOLDING"
	StatusSold    HoldingStatus = "SOLD"
)

// WalletHolding is the per-wallet line of a HoldingsReport.
type WalletHolding struct {
	StillHolding bool          `json:"still_holding"`
	Status       HoldingStatus `json:"status"`
	PurchaseTime string        `json:"purchase_time"`
}

// HoldingsReport summarizes which wallets of a candidate still hold the token.
// StillHolding + Sold == TotalWallets.
type HoldingsReport struct {
	Token        string                   `json:"token"`
	TotalWallets int                      `json:"total_wallets"`
	StillHolding int                      `json:"still_holding"`
	Sold         int                      `json:"sold"`
	Wallets      map[string]WalletHolding `json:"wallets"`
}
