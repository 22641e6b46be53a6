package discovery

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/solana"
)

// Defaults for co-purchase aggregation.
const (
	DefaultThreshold    = 2
	DefaultLookback     = 6 * time.Hour
	DefaultMintPageSize = 1000
)

// Config holds aggregation parameters.
type Config struct {
	Threshold      int           // minimum distinct wallets per token
	Lookback       time.Duration // purchase window
	MintPageSize   int           // signatures listed for creation-time lookup
	Concurrency    int           // parallel wallet scans; <= 1 is sequential
	EnrichMetadata bool          // fetch name/symbol via getAsset
}

// DefaultConfig returns the default aggregation parameters.
func DefaultConfig() Config {
	return Config{
		Threshold:    DefaultThreshold,
		Lookback:     DefaultLookback,
		MintPageSize: DefaultMintPageSize,
		Concurrency:  1,
	}
}

// Result is the outcome of one aggregation run.
type Result struct {
	Candidates     []domain.TokenCandidate
	Purchases      []domain.PurchaseEvent // every event seen, in merge order
	WalletsScanned int
}

// Aggregator groups purchases of many wallets by token and keeps tokens
// bought by at least Threshold distinct wallets.
type Aggregator struct {
	scanner Scanner
	meta    solana.MetadataClient
	config  Config
	logger  zerolog.Logger
}

// NewAggregator creates an Aggregator. meta may be nil, in which case
// creation times fall back to the earliest observed purchase.
func NewAggregator(scanner Scanner, meta solana.MetadataClient, config Config, logger zerolog.Logger) *Aggregator {
	if config.Threshold < 1 {
		config.Threshold = DefaultThreshold
	}
	if config.MintPageSize < 1 {
		config.MintPageSize = DefaultMintPageSize
	}
	if config.Lookback <= 0 {
		config.Lookback = DefaultLookback
	}
	return &Aggregator{
		scanner: scanner,
		meta:    meta,
		config:  config,
		logger:  logger,
	}
}

// Config returns the effective configuration.
func (a *Aggregator) Config() Config {
	return a.config
}

// Aggregate scans wallets and returns the candidates sorted by wallet count
// descending, then token ascending.
func (a *Aggregator) Aggregate(ctx context.Context, wallets []string) *Result {
	wallets = uniqueWallets(wallets)
	purchases := a.scanAll(ctx, wallets)

	groups := groupByToken(purchases)
	var candidates []domain.TokenCandidate
	for _, g := range groups {
		if len(g.wallets) < a.config.Threshold {
			continue
		}
		candidates = append(candidates, a.buildCandidate(ctx, g))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].WalletCount != candidates[j].WalletCount {
			return candidates[i].WalletCount > candidates[j].WalletCount
		}
		return candidates[i].Token < candidates[j].Token
	})

	a.logger.Info().
		Int("wallets", len(wallets)).
		Int("purchases", len(purchases)).
		Int("tokens", len(groups)).
		Int("candidates", len(candidates)).
		Int("threshold", a.config.Threshold).
		Msg("aggregation complete")

	return &Result{
		Candidates:     candidates,
		Purchases:      purchases,
		WalletsScanned: len(wallets),
	}
}

// scanAll runs one scan per wallet and concatenates the results in wallet
// order once every scan has finished.
func (a *Aggregator) scanAll(ctx context.Context, wallets []string) []domain.PurchaseEvent {
	perWallet := make([][]domain.PurchaseEvent, len(wallets))

	if a.config.Concurrency <= 1 {
		for i, w := range wallets {
			a.logger.Info().Int("n", i+1).Int("of", len(wallets)).Str("wallet", w).Msg("scanning wallet")
			perWallet[i] = a.scanner.Scan(ctx, w, a.config.Lookback)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(a.config.Concurrency)
		for i, w := range wallets {
			g.Go(func() error {
				perWallet[i] = a.scanner.Scan(ctx, w, a.config.Lookback)
				return nil
			})
		}
		_ = g.Wait() // scans fail soft
	}

	var all []domain.PurchaseEvent
	for _, events := range perWallet {
		all = append(all, events...)
	}
	return all
}

// tokenGroup collects the purchases of one token.
type tokenGroup struct {
	token    string
	wallets  map[string]domain.PurchaseEvent // earliest purchase per wallet
	earliest int64
}

func groupByToken(purchases []domain.PurchaseEvent) map[string]*tokenGroup {
	groups := make(map[string]*tokenGroup)
	for _, p := range purchases {
		g, ok := groups[p.Token]
		if !ok {
			g = &tokenGroup{
				token:    p.Token,
				wallets:  make(map[string]domain.PurchaseEvent),
				earliest: p.BlockTime,
			}
			groups[p.Token] = g
		}
		if prev, seen := g.wallets[p.Wallet]; !seen || p.BlockTime < prev.BlockTime {
			g.wallets[p.Wallet] = p
		}
		if p.BlockTime < g.earliest {
			g.earliest = p.BlockTime
		}
	}
	return groups
}

func (a *Aggregator) buildCandidate(ctx context.Context, g *tokenGroup) domain.TokenCandidate {
	wallets := make(map[string]domain.WalletPurchase, len(g.wallets))
	for addr, p := range g.wallets {
		wallets[addr] = domain.NewWalletPurchase(p)
	}

	created := a.creationTime(ctx, g.token, &g.earliest)
	c := domain.TokenCandidate{
		Token:          g.token,
		WalletCount:    len(wallets),
		TokenFirstSeen: domain.FormatUnixPtr(created),
		TokenTimestamp: created,
		Wallets:        wallets,
	}

	if a.config.EnrichMetadata && a.meta != nil {
		if asset := a.meta.GetAsset(ctx, g.token); asset != nil {
			c.Name = asset.Name
			c.Symbol = asset.Symbol
		}
	}
	return c
}

func uniqueWallets(wallets []string) []string {
	seen := make(map[string]bool, len(wallets))
	out := make([]string, 0, len(wallets))
	for _, w := range wallets {
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
