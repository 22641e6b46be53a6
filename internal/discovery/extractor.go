package discovery

import (
	"github.com/shopspring/decimal"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/solana"
)

// ExtractBuys returns one purchase event per mint whose balance owned by
// wallet grew in tx. Balances of several token accounts of the same mint are
// summed on each side. Transactions without block time or meta yield nothing.
func ExtractBuys(tx *solana.Transaction, wallet string) []domain.PurchaseEvent {
	if tx == nil || tx.BlockTime == nil || tx.Meta == nil {
		return nil
	}

	pre := make(map[string]decimal.Decimal)
	for _, b := range tx.Meta.PreTokenBalances {
		if b.Owner == wallet && b.Mint != "" {
			pre[b.Mint] = pre[b.Mint].Add(b.Amount)
		}
	}

	post := make(map[string]decimal.Decimal)
	var mints []string // first-seen order of post entries
	for _, b := range tx.Meta.PostTokenBalances {
		if b.Owner != wallet || b.Mint == "" {
			continue
		}
		if _, seen := post[b.Mint]; !seen {
			mints = append(mints, b.Mint)
		}
		post[b.Mint] = post[b.Mint].Add(b.Amount)
	}

	blockTime := *tx.BlockTime
	var events []domain.PurchaseEvent
	for _, mint := range mints {
		increase := post[mint].Sub(pre[mint])
		if !increase.IsPositive() {
			continue
		}
		events = append(events, domain.PurchaseEvent{
			Token:          mint,
			Wallet:         wallet,
			Signature:      tx.Signature,
			BlockTime:      blockTime,
			PurchaseTime:   domain.FormatUnix(blockTime),
			AmountIncrease: increase,
		})
	}
	return events
}
