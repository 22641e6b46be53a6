// Package config loads scanner configuration from an optional YAML file,
// a .env file and COPURCHASE_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. COPURCHASE_SCAN_THRESHOLD.
const EnvPrefix = "COPURCHASE"

// Config represents the complete application configuration.
type Config struct {
	RPC      RPCConfig      `mapstructure:"rpc"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Holdings HoldingsConfig `mapstructure:"holdings"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// RPCConfig describes the two upstream providers.
type RPCConfig struct {
	PrimaryURL            string        `mapstructure:"primary_url"`
	PrimaryKeys           []string      `mapstructure:"primary_keys"`
	PrimaryAuth           string        `mapstructure:"primary_auth"` // path | query
	SecondaryURL          string        `mapstructure:"secondary_url"`
	SecondaryKeys         []string      `mapstructure:"secondary_keys"`
	SecondaryAuth         string        `mapstructure:"secondary_auth"`
	WSURL                 string        `mapstructure:"ws_url"`
	Timeout               time.Duration `mapstructure:"timeout"`
	RetryDelay            time.Duration `mapstructure:"retry_delay"`
	AttemptsPerCredential int           `mapstructure:"attempts_per_credential"`
}

// ScanConfig holds co-purchase scan parameters.
type ScanConfig struct {
	Wallets        []string      `mapstructure:"wallets"`
	UseRegistry    bool          `mapstructure:"use_registry"` // scan registry wallets instead of Wallets
	Lookback       time.Duration `mapstructure:"lookback"`
	Threshold      int           `mapstructure:"threshold"`
	Pacing         time.Duration `mapstructure:"pacing"`
	WalletPageSize int           `mapstructure:"wallet_page_size"`
	MintPageSize   int           `mapstructure:"mint_page_size"`
	Concurrency    int           `mapstructure:"concurrency"`
	EnrichMetadata bool          `mapstructure:"enrich_metadata"`
	Archive        bool          `mapstructure:"archive"`
}

// HoldingsConfig holds holdings verification parameters.
type HoldingsConfig struct {
	Pacing        time.Duration `mapstructure:"pacing"`
	TokenPrograms []string      `mapstructure:"token_programs"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend       string             `mapstructure:"backend"` // file | memory | sqlite | postgres
	DataDir       string             `mapstructure:"data_dir"`
	SQLitePath    string             `mapstructure:"sqlite_path"`
	PostgresDSN   string             `mapstructure:"postgres_dsn"`
	PostgresPool  PostgresPoolConfig `mapstructure:"postgres_pool"`
	ClickhouseDSN string             `mapstructure:"clickhouse_dsn"` // purchase archive, optional
}

// PostgresPoolConfig sizes the postgres connection pool; zero keeps pgx defaults.
type PostgresPoolConfig struct {
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// NotifyConfig configures snapshot publication.
type NotifyConfig struct {
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// KafkaConfig holds Kafka producer configuration.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
	TopN     int    `mapstructure:"top_n"`
}

// ServerConfig configures cmd/server.
type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	ScanSchedule  string        `mapstructure:"scan_schedule"` // cron spec, empty disables
	Watch         bool          `mapstructure:"watch"`
	WatchCooldown time.Duration `mapstructure:"watch_cooldown"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. path may be empty, in which case only defaults,
// .env and environment variables apply.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc.primary_url", "https://solana-mainnet.g.alchemy.com/v2")
	v.SetDefault("rpc.primary_keys", []string{})
	v.SetDefault("rpc.primary_auth", "path")
	v.SetDefault("rpc.secondary_url", "https://mainnet.helius-rpc.com")
	v.SetDefault("rpc.secondary_keys", []string{})
	v.SetDefault("rpc.secondary_auth", "query")
	v.SetDefault("rpc.ws_url", "")
	v.SetDefault("rpc.timeout", "30s")
	v.SetDefault("rpc.retry_delay", "500ms")
	v.SetDefault("rpc.attempts_per_credential", 2)

	v.SetDefault("scan.wallets", []string{
		"GrDMoeqMLFjeXQ24H56S1RLgT4R76jsuWCd6SvXyGPQ5",
		"2ojv9BAiHUrvsm9gxDe7fJSzbNZSJcxZvf8dqmWGHG8S",
	})
	v.SetDefault("scan.use_registry", false)
	v.SetDefault("scan.lookback", "6h")
	v.SetDefault("scan.threshold", 2)
	v.SetDefault("scan.pacing", "500ms")
	v.SetDefault("scan.wallet_page_size", 50)
	v.SetDefault("scan.mint_page_size", 1000)
	v.SetDefault("scan.concurrency", 1)
	v.SetDefault("scan.enrich_metadata", false)
	v.SetDefault("scan.archive", false)

	v.SetDefault("holdings.pacing", "500ms")
	v.SetDefault("holdings.token_programs", []string{"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"})

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.data_dir", ".")
	v.SetDefault("storage.sqlite_path", "copurchase.db")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("storage.postgres_pool.max_conns", 4)
	v.SetDefault("storage.postgres_pool.min_conns", 0)
	v.SetDefault("storage.postgres_pool.max_conn_lifetime", "1h")

	v.SetDefault("notify.kafka.enabled", false)
	v.SetDefault("notify.kafka.brokers", []string{})
	v.SetDefault("notify.kafka.topic", "copurchase-signals")
	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", 0)
	v.SetDefault("notify.telegram.top_n", 10)

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.scan_schedule", "")
	v.SetDefault("server.watch", false)
	v.SetDefault("server.watch_cooldown", "5m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	if c.RPC.PrimaryURL == "" {
		return fmt.Errorf("rpc.primary_url is required")
	}
	if c.RPC.SecondaryURL == "" {
		return fmt.Errorf("rpc.secondary_url is required")
	}
	for name, auth := range map[string]string{"rpc.primary_auth": c.RPC.PrimaryAuth, "rpc.secondary_auth": c.RPC.SecondaryAuth} {
		if auth != "path" && auth != "query" {
			return fmt.Errorf("%s must be one of: path, query", name)
		}
	}
	if c.RPC.Timeout <= 0 {
		return fmt.Errorf("rpc.timeout must be positive")
	}
	if c.RPC.RetryDelay < 0 {
		return fmt.Errorf("rpc.retry_delay must not be negative")
	}
	if c.RPC.AttemptsPerCredential < 1 {
		return fmt.Errorf("rpc.attempts_per_credential must be at least 1")
	}

	if c.Scan.Lookback <= 0 {
		return fmt.Errorf("scan.lookback must be positive")
	}
	if c.Scan.Threshold < 1 {
		return fmt.Errorf("scan.threshold must be at least 1")
	}
	if c.Scan.Pacing < 0 || c.Holdings.Pacing < 0 {
		return fmt.Errorf("pacing must not be negative")
	}
	if c.Scan.WalletPageSize < 1 || c.Scan.WalletPageSize > 1000 {
		return fmt.Errorf("scan.wallet_page_size must be between 1 and 1000")
	}
	if c.Scan.MintPageSize < 1 || c.Scan.MintPageSize > 1000 {
		return fmt.Errorf("scan.mint_page_size must be between 1 and 1000")
	}
	if c.Scan.Concurrency < 0 {
		return fmt.Errorf("scan.concurrency must not be negative")
	}
	if c.Scan.Archive && c.Storage.ClickhouseDSN == "" {
		return fmt.Errorf("storage.clickhouse_dsn is required when scan.archive is enabled")
	}
	if len(c.Holdings.TokenPrograms) == 0 {
		return fmt.Errorf("holdings.token_programs must contain at least one program")
	}

	switch c.Storage.Backend {
	case "file", "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for sqlite backend")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for postgres backend")
		}
		if c.Storage.PostgresPool.MaxConns < 0 || c.Storage.PostgresPool.MinConns < 0 {
			return fmt.Errorf("storage.postgres_pool sizes must not be negative")
		}
	default:
		return fmt.Errorf("storage.backend must be one of: file, memory, sqlite, postgres")
	}

	if c.Notify.Kafka.Enabled && (len(c.Notify.Kafka.Brokers) == 0 || c.Notify.Kafka.Topic == "") {
		return fmt.Errorf("notify.kafka.brokers and notify.kafka.topic are required when kafka is enabled")
	}
	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == 0) {
		return fmt.Errorf("notify.telegram.bot_token and notify.telegram.chat_id are required when telegram is enabled")
	}
	if c.Server.Watch && c.RPC.WSURL == "" {
		return fmt.Errorf("rpc.ws_url is required when server.watch is enabled")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be one of: json, text")
	}
	return nil
}
