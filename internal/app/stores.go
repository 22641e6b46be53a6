package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"solana-copurchase/internal/config"
	"solana-copurchase/internal/storage"
	chstore "solana-copurchase/internal/storage/clickhouse"
	"solana-copurchase/internal/storage/file"
	"solana-copurchase/internal/storage/memory"
	"solana-copurchase/internal/storage/migrations"
	pgstore "solana-copurchase/internal/storage/postgres"
	"solana-copurchase/internal/storage/sqlite"
)

// Stores bundles the persistence backends selected by configuration.
type Stores struct {
	Signals        storage.SignalStore
	Wallets        storage.WalletStore
	TrackerResults storage.TrackerResultStore
	Archive        storage.PurchaseArchive // nil unless scan.archive is set

	closers []func()
}

// Close releases every connection opened by OpenStores.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStores creates the stores for cfg.Backend. The purchase archive goes to
// ClickHouse when a DSN is configured, otherwise to the primary backend when
// it has one.
func OpenStores(ctx context.Context, cfg config.StorageConfig, archive bool, logger zerolog.Logger) (*Stores, error) {
	s := &Stores{}

	var localArchive storage.PurchaseArchive
	switch cfg.Backend {
	case "memory":
		s.Signals = memory.NewSignalStore()
		s.Wallets = memory.NewWalletStore()
		s.TrackerResults = memory.NewTrackerResultStore()
		localArchive = memory.NewPurchaseArchive()

	case "file", "":
		s.Signals = file.NewSignalStore(cfg.DataDir)
		s.Wallets = file.NewWalletStore(cfg.DataDir)
		s.TrackerResults = file.NewTrackerResultStore(cfg.DataDir)

	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		s.closers = append(s.closers, func() { _ = db.Close() })
		s.Signals = db.Signals()
		s.Wallets = db.Wallets()
		s.TrackerResults = db.TrackerResults()
		localArchive = db.Purchases()

	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, pgstore.PoolOptions{
			MaxConns:        cfg.PostgresPool.MaxConns,
			MinConns:        cfg.PostgresPool.MinConns,
			MaxConnLifetime: cfg.PostgresPool.MaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.Signals = pgstore.NewSignalStore(pool)
		s.Wallets = pgstore.NewWalletStore(pool)
		s.TrackerResults = pgstore.NewTrackerResultStore(pool)
		localArchive = pgstore.NewPurchaseArchive(pool)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if !archive {
		return s, nil
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("clickhouse archive: %w", err)
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		s.Archive = chstore.NewPurchaseArchive(conn)
		logger.Info().Msg("archiving purchases to clickhouse")
		return s, nil
	}

	if localArchive == nil {
		logger.Warn().Str("backend", cfg.Backend).Msg("backend has no purchase archive, archiving disabled")
		return s, nil
	}
	s.Archive = localArchive
	logger.Info().Str("backend", cfg.Backend).Msg("archiving purchases")
	return s, nil
}
