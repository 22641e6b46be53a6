// Package holdings re-checks whether wallets still hold a token they bought.
package holdings

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/observability"
	"solana-copurchase/internal/pacing"
	"solana-copurchase/internal/solana"
)

// Verifier classifies wallets as HOLDING or SOLD from their current token accounts.
type Verifier struct {
	rpc      solana.RPCClient
	programs []string
	pacing   pacing.Policy
	logger   zerolog.Logger
}

// Option configures Verifier.
type Option func(*Verifier)

// WithPrograms sets the token programs whose accounts are inspected.
func WithPrograms(programs ...string) Option {
	return func(v *Verifier) {
		if len(programs) > 0 {
			v.programs = programs
		}
	}
}

// WithPacing sets the delay policy between wallets.
func WithPacing(p pacing.Policy) Option {
	return func(v *Verifier) {
		v.pacing = p
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(v *Verifier) {
		v.logger = l
	}
}

// NewVerifier creates a Verifier that checks the SPL Token program by default.
func NewVerifier(rpc solana.RPCClient, opts ...Option) *Verifier {
	v := &Verifier{
		rpc:      rpc,
		programs: []string{solana.TokenProgramID},
		pacing:   pacing.Default(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// IsHolding reports whether wallet has a token account for mint with a
// positive balance. An unreachable upstream reads as not holding.
func (v *Verifier) IsHolding(ctx context.Context, wallet, mint string) bool {
	for _, program := range v.programs {
		for _, acct := range v.rpc.GetTokenAccountsByOwner(ctx, wallet, program) {
			if acct.Mint == mint && acct.Amount.IsPositive() {
				return true
			}
		}
	}
	return false
}

// CheckHoldings checks every wallet of a candidate, in address order, pacing
// between wallets. Purchase times are copied from wallets.
func (v *Verifier) CheckHoldings(ctx context.Context, token string, wallets map[string]domain.WalletPurchase) *domain.HoldingsReport {
	report := &domain.HoldingsReport{
		Token:        token,
		TotalWallets: len(wallets),
		Wallets:      make(map[string]domain.WalletHolding, len(wallets)),
	}

	addrs := make([]string, 0, len(wallets))
	for addr := range wallets {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	limiter := v.pacing.NewLimiter()
	for _, addr := range addrs {
		if err := limiter.Wait(ctx); err != nil {
			// unchecked wallets count as SOLD so the totals still add up
			v.logger.Warn().Err(err).Str("token", token).Msg("holdings check interrupted")
		}

		holding := ctx.Err() == nil && v.IsHolding(ctx, addr, token)
		status := domain.StatusSold
		if holding {
			status = domain.StatusHolding
			report.StillHolding++
		} else {
			report.Sold++
		}
		observability.RecordHoldingCheck(string(status))

		purchaseTime := wallets[addr].PurchaseTime
		if purchaseTime == "" {
			purchaseTime = domain.UnknownTime
		}
		report.Wallets[addr] = domain.WalletHolding{
			StillHolding: holding,
			Status:       status,
			PurchaseTime: purchaseTime,
		}
	}

	v.logger.Info().
		Str("token", token).
		Int("holding", report.StillHolding).
		Int("sold", report.Sold).
		Msg("holdings check complete")
	return report
}
