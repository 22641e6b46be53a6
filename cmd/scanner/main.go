// Package main provides the co-purchase scanner CLI.
//
// Modes:
//
//	scan            scan configured wallets and print candidates
//	holdings        verify candidate wallets still hold -token
//	wallets-add     add -address (optional -name) to the registry
//	wallets-remove  remove -address from the registry
//	wallets-list    print the registry
//	track-scan      scan registry wallets over -lookback
//	export-csv      write the stored snapshot as CSV to -out (stdout if empty)
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	"solana-copurchase/internal/app"
	"solana-copurchase/internal/config"
	"solana-copurchase/internal/logging"
	"solana-copurchase/internal/reporting"
	"solana-copurchase/internal/tracking"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	mode := flag.String("mode", "scan", "Mode: scan, holdings, wallets-add, wallets-remove, wallets-list, track-scan, export-csv")
	token := flag.String("token", "", "Token mint for holdings mode")
	address := flag.String("address", "", "Wallet address for wallets-add/wallets-remove")
	name := flag.String("name", "", "Wallet display name for wallets-add")
	lookback := flag.Duration("lookback", 0, "Lookback for track-scan (default scan.lookback)")
	out := flag.String("out", "", "Output file for export-csv")
	useRegistry := flag.Bool("use-registry", false, "Scan registry wallets instead of scan.wallets")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if *useRegistry {
		cfg.Scan.UseRegistry = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	logger := logging.Init(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, app.NewRPCClient(cfg.RPC, logger), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init")
	}
	defer a.Close()

	if err := run(ctx, a, *mode, options{
		token:    *token,
		address:  *address,
		name:     *name,
		lookback: *lookback,
		out:      *out,
	}); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		a.Close()
		os.Exit(1)
	}
}

type options struct {
	token    string
	address  string
	name     string
	lookback time.Duration
	out      string
}

func run(ctx context.Context, a *app.App, mode string, opts options) error {
	w := os.Stdout
	bold := color.New(color.Bold)

	switch mode {
	case "scan":
		res, err := a.Orchestrator.RunScan(ctx)
		if err != nil {
			return err
		}
		bold.Fprintf(w, "Scanned %d wallets, %d purchases, %d candidates (snapshot %s)\n",
			res.WalletsScanned, res.Purchases, len(res.Candidates), res.SnapshotID)
		reporting.PrintCandidates(w, res.Candidates)
		return nil

	case "holdings":
		if opts.token == "" {
			return fmt.Errorf("-token is required")
		}
		report, err := a.Orchestrator.CheckHoldings(ctx, opts.token)
		if err != nil {
			return err
		}
		reporting.PrintHoldings(w, report)
		return nil

	case "wallets-add":
		res, err := a.Registry.Add(ctx, opts.address, opts.name)
		if err != nil {
			return err
		}
		printResult(w, res)
		return nil

	case "wallets-remove":
		res, err := a.Registry.Remove(ctx, opts.address)
		if err != nil {
			return err
		}
		printResult(w, res)
		return nil

	case "wallets-list":
		wallets, err := a.Registry.List(ctx)
		if err != nil {
			return err
		}
		reporting.PrintTrackedWallets(w, wallets)
		return nil

	case "track-scan":
		lb := opts.lookback
		if lb <= 0 {
			lb = a.Config.Scan.Lookback
		}
		outcome, err := a.Tracker.ScanAll(ctx, lb)
		if err != nil {
			return err
		}
		bold.Fprintln(w, outcome.Message)
		reporting.PrintTrackerResults(w, outcome.Results)
		return nil

	case "export-csv":
		return exportCSV(ctx, a, opts.out, w)

	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func printResult(w io.Writer, res *tracking.Result) {
	if res.Success {
		color.New(color.FgGreen).Fprintln(w, res.Message)
		return
	}
	color.New(color.FgYellow).Fprintln(w, res.Message)
}

func exportCSV(ctx context.Context, a *app.App, path string, stdout io.Writer) error {
	snap := a.Orchestrator.Signals(ctx)
	if path == "" {
		return reporting.WriteCandidatesCSV(stdout, snap.Candidates)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := reporting.WriteCandidatesCSV(f, snap.Candidates); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	color.New(color.FgGreen).Fprintf(stdout, "Wrote %d candidates to %s\n", len(snap.Candidates), path)
	return nil
}
