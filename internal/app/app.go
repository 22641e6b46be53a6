// Package app wires configuration into a runnable scanner: stores, RPC
// clients, aggregation, tracking and notification sinks.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"solana-copurchase/internal/config"
	"solana-copurchase/internal/discovery"
	"solana-copurchase/internal/holdings"
	"solana-copurchase/internal/logging"
	"solana-copurchase/internal/notify"
	"solana-copurchase/internal/orchestrator"
	"solana-copurchase/internal/pacing"
	"solana-copurchase/internal/solana"
	"solana-copurchase/internal/tracking"
)

// RPC is the upstream surface the app needs.
type RPC interface {
	solana.RPCClient
	solana.MetadataClient
}

// App holds the wired components.
type App struct {
	Config       *config.Config
	Stores       *Stores
	Scanner      *discovery.WalletScanner
	Orchestrator *orchestrator.Orchestrator
	Registry     *tracking.Registry
	Tracker      *tracking.Tracker
	Notifier     *notify.Multi

	logger zerolog.Logger
}

// NewRPCClient builds the two-provider HTTP client from cfg.
func NewRPCClient(cfg config.RPCConfig, logger zerolog.Logger) *solana.HTTPClient {
	gw := solana.NewGateway(
		solana.WithTimeout(cfg.Timeout),
		solana.WithRetryPolicy(solana.RetryPolicy{
			AttemptsPerCredential: cfg.AttemptsPerCredential,
			Delay:                 cfg.RetryDelay,
		}),
		solana.WithLogger(logging.Component(logger, "rpc")),
	)
	primary := &solana.Provider{
		Name:        "primary",
		BaseURL:     cfg.PrimaryURL,
		Auth:        authMode(cfg.PrimaryAuth),
		Credentials: solana.NewCredentialPool(cfg.PrimaryKeys...),
	}
	secondary := &solana.Provider{
		Name:        "secondary",
		BaseURL:     cfg.SecondaryURL,
		Auth:        authMode(cfg.SecondaryAuth),
		Credentials: solana.NewCredentialPool(cfg.SecondaryKeys...),
	}
	return solana.NewHTTPClient(gw, primary, secondary)
}

func authMode(s string) solana.AuthMode {
	if strings.EqualFold(s, "query") {
		return solana.AuthQuery
	}
	return solana.AuthPath
}

// New wires every component on top of rpc. The caller owns Close.
func New(ctx context.Context, cfg *config.Config, rpc RPC, logger zerolog.Logger) (*App, error) {
	stores, err := OpenStores(ctx, cfg.Storage, cfg.Scan.Archive, logging.Component(logger, "storage"))
	if err != nil {
		return nil, err
	}

	scanner := discovery.NewWalletScanner(rpc,
		discovery.WithPageSize(cfg.Scan.WalletPageSize),
		discovery.WithPacing(pacing.Policy{Delay: cfg.Scan.Pacing}),
		discovery.WithScannerLogger(logging.Component(logger, "scanner")),
	)
	aggregator := discovery.NewAggregator(scanner, rpc, discovery.Config{
		Threshold:      cfg.Scan.Threshold,
		Lookback:       cfg.Scan.Lookback,
		MintPageSize:   cfg.Scan.MintPageSize,
		Concurrency:    cfg.Scan.Concurrency,
		EnrichMetadata: cfg.Scan.EnrichMetadata,
	}, logging.Component(logger, "aggregator"))
	verifier := holdings.NewVerifier(rpc,
		holdings.WithPrograms(cfg.Holdings.TokenPrograms...),
		holdings.WithPacing(pacing.Policy{Delay: cfg.Holdings.Pacing}),
		holdings.WithLogger(logging.Component(logger, "holdings")),
	)

	notifier, err := newNotifier(cfg.Notify, logging.Component(logger, "notify"))
	if err != nil {
		stores.Close()
		return nil, err
	}

	registry := tracking.NewRegistry(stores.Wallets)
	opts := orchestrator.Options{
		Aggregator:  aggregator,
		Holdings:    verifier,
		Signals:     stores.Signals,
		Wallets:     cfg.Scan.Wallets,
		Registry:    registry,
		UseRegistry: cfg.Scan.UseRegistry,
		Archive:     stores.Archive,
		Logger:      logging.Component(logger, "orchestrator"),
	}
	if notifier.Len() > 0 {
		opts.Notifier = notifier
	}

	return &App{
		Config:       cfg,
		Stores:       stores,
		Scanner:      scanner,
		Orchestrator: orchestrator.New(opts),
		Registry:     registry,
		Tracker:      tracking.NewTracker(stores.Wallets, stores.TrackerResults, scanner, logging.Component(logger, "tracker")),
		Notifier:     notifier,
		logger:       logger,
	}, nil
}

func newNotifier(cfg config.NotifyConfig, logger zerolog.Logger) (*notify.Multi, error) {
	var sinks []notify.Notifier
	if cfg.Kafka.Enabled {
		sinks = append(sinks, notify.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger))
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka notifications enabled")
	}
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.TopN)
		if err != nil {
			for _, s := range sinks {
				_ = s.Close()
			}
			return nil, fmt.Errorf("telegram notifier: %w", err)
		}
		sinks = append(sinks, tg)
		logger.Info().Int64("chat_id", cfg.Telegram.ChatID).Msg("telegram notifications enabled")
	}
	return notify.NewMulti(sinks...), nil
}

// Close shuts down notifiers and stores.
func (a *App) Close() {
	if err := a.Notifier.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close notifiers")
	}
	a.Stores.Close()
}
