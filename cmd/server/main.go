// Package main runs the co-purchase service:
// - HTTP API (signals, scans, holdings, wallet registry, metrics)
// - Scheduled scans (cron spec from server.scan_schedule)
// - Optional WebSocket watcher that triggers scans on wallet activity
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"solana-copurchase/internal/api"
	"solana-copurchase/internal/app"
	"solana-copurchase/internal/config"
	"solana-copurchase/internal/logging"
	"solana-copurchase/internal/solana"
	"solana-copurchase/internal/watch"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	logger := logging.Init(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, app.NewRPCClient(cfg.RPC, logger), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init")
	}
	defer a.Close()

	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()

		// Second signal or a stuck shutdown forces exit.
		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("forced shutdown")
			os.Exit(1)
		case <-time.After(shutdownTimeout):
			logger.Warn().Msg("graceful shutdown timed out")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, a, logger)
	close(done)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Close()
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("shutdown complete")
}

// run serves until ctx is cancelled.
func run(ctx context.Context, a *app.App, logger zerolog.Logger) error {
	cfg := a.Config
	var wg sync.WaitGroup

	scan := func(ctx context.Context, trigger string) {
		res, err := a.Orchestrator.RunScan(ctx)
		if err != nil {
			logger.Error().Err(err).Str("trigger", trigger).Msg("scan failed")
			return
		}
		logger.Info().
			Str("trigger", trigger).
			Str("snapshot_id", res.SnapshotID).
			Int("candidates", len(res.Candidates)).
			Bool("changed", res.Changed).
			Msg("scan complete")
	}

	if cfg.Server.ScanSchedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.Server.ScanSchedule, func() { scan(ctx, "schedule") }); err != nil {
			return err
		}
		c.Start()
		logger.Info().Str("schedule", cfg.Server.ScanSchedule).Msg("scheduled scans enabled")
		defer func() { <-c.Stop().Done() }()
	}

	if cfg.Server.Watch {
		ws, err := solana.NewWSClient(ctx, cfg.RPC.WSURL, nil, logger)
		if err != nil {
			return err
		}
		defer ws.Close()

		wallets, err := watchedWallets(ctx, a)
		if err != nil {
			return err
		}
		w := watch.New(ws, cfg.Server.WatchCooldown, func(ctx context.Context) { scan(ctx, "activity") }, logging.Component(logger, "watch"))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx, wallets); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("watcher stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewServer(a.Orchestrator, a.Registry, a.Tracker, logging.Component(logger, "api")).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	wg.Wait()
	return runErr
}

// watchedWallets returns the wallets the scanner would scan.
func watchedWallets(ctx context.Context, a *app.App) ([]string, error) {
	if a.Config.Scan.UseRegistry {
		return a.Registry.Addresses(ctx)
	}
	return a.Config.Scan.Wallets, nil
}
