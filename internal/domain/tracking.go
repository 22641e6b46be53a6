package domain

// TrackedWallet is an entry of the user-managed wallet registry.
type TrackedWallet struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	AddedAt string `json:"added_at"`
}

// TokenSummary aggregates one wallet's buys of one token.
type TokenSummary struct {
	Token             string `json:"token"`
	FirstPurchase     string `json:"first_purchase"`
	FirstPurchaseTime int64  `json:"first_purchase_time"`
	TotalBuys         int    `json:"total_buys"`
}

// TrackedScanResult is the scan outcome for one registry wallet.
type TrackedScanResult struct {
	WalletAddress string         `json:"wallet_address"`
	WalletName    string         `json:"wallet_name"`
	TokensBought  []TokenSummary `json:"tokens_bought"`
	TotalTokens   int            `json:"total_tokens"`
	ScannedAt     string         `json:"scanned_at"`
}
