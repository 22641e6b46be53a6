package domain

import "time"

// TokenCandidate is a token bought by at least threshold distinct wallets
// within the lookback window. Serialized layout matches copurchase_signals.json.
type TokenCandidate struct {
	Token          string                    `json:"token"`
	WalletCount    int                       `json:"wallet_count"`
	TokenFirstSeen string                    `json:"token_first_seen"`
	TokenTimestamp *int64                    `json:"token_timestamp"`
	Wallets        map[string]WalletPurchase `json:"wallets"`

	// Optional asset metadata.
	Name   string `json:"name,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

// Clone returns a deep copy.
func (c TokenCandidate) Clone() TokenCandidate {
	out := c
	if c.TokenTimestamp != nil {
		ts := *c.TokenTimestamp
		out.TokenTimestamp = &ts
	}
	out.Wallets = make(map[string]WalletPurchase, len(c.Wallets))
	for addr, wp := range c.Wallets {
		if wp.BlockTime != nil {
			bt := *wp.BlockTime
			wp.BlockTime = &bt
		}
		out.Wallets[addr] = wp
	}
	return out
}

// SignalSnapshot is the result of the most recent scan.
type SignalSnapshot struct {
	Candidates []TokenCandidate
	ScannedAt  time.Time // zero when no scan has been stored
}

// Find returns the candidate for token, if present.
func (s *SignalSnapshot) Find(token string) (TokenCandidate, bool) {
	if s == nil {
		return TokenCandidate{}, false
	}
	for _, c := range s.Candidates {
		if c.Token == token {
			return c, true
		}
	}
	return TokenCandidate{}, false
}

// CloneCandidates deep-copies a candidate list.
func CloneCandidates(in []TokenCandidate) []TokenCandidate {
	if in == nil {
		return nil
	}
	out := make([]TokenCandidate, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
