package discovery

import "context"

// creationTime resolves when a mint was created: the block time of the
// oldest signature in one page of the mint's history, else fallback.
// A mint with more history than one page resolves to the oldest entry of
// that page.
func (a *Aggregator) creationTime(ctx context.Context, mint string, fallback *int64) *int64 {
	if a.meta != nil {
		sigs := a.meta.GetMintSignatures(ctx, mint, a.config.MintPageSize)
		if n := len(sigs); n > 0 && sigs[n-1].BlockTime != nil {
			ts := *sigs[n-1].BlockTime
			return &ts
		}
		a.logger.Debug().Str("token", mint).Msg("creation time unavailable, using earliest purchase")
	}
	if fallback == nil {
		return nil
	}
	ts := *fallback
	return &ts
}
