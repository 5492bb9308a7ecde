// Package common provides shared utilities for finanzas
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Storage backends
const (
	BackendFile      = "file"
	BackendSQLite    = "sqlite"
	BackendS3        = "s3"
	BackendSurrealDB = "surrealdb"
)

// DefaultBaseCurrency is used when base_currency is unset or not a known ISO code.
const DefaultBaseCurrency = "MXN"

// Config holds all configuration for finanzas
type Config struct {
	Environment  string        `toml:"environment"`
	BaseCurrency string        `toml:"base_currency"` // Currency all valuations are expressed in (default "MXN")
	DefaultUser  string        `toml:"default_user"`
	Pricing      PricingConfig `toml:"pricing"`
	Storage      StorageConfig `toml:"storage"`
	Clients      ClientsConfig `toml:"clients"`
	Logging      LoggingConfig `toml:"logging"`
}

// PricingConfig holds price resolution settings
type PricingConfig struct {
	Timeout         string            `toml:"timeout"`           // Bound on every quote, FX and history fetch
	FallbackUSDRate float64           `toml:"fallback_usd_rate"` // USD->base rate used when the FX lookup fails
	ExchangeSuffix  string            `toml:"exchange_suffix"`   // Regional exchange suffix for equities (".MX")
	Concurrency     int               `toml:"concurrency"`       // Max in-flight resolutions per batch
	CryptoIDs       map[string]string `toml:"crypto_ids"`        // Ticker -> CoinGecko coin id
}

// GetTimeout parses and returns the per-fetch timeout
func (c *PricingConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// StorageConfig selects and configures the transaction store.
type StorageConfig struct {
	Backend   string          `toml:"backend"` // "file" (default), "sqlite", "s3", "surrealdb"
	File      FileConfig      `toml:"file"`
	SQLite    SQLiteConfig    `toml:"sqlite"`
	S3        S3Config        `toml:"s3"`
	SurrealDB SurrealDBConfig `toml:"surrealdb"`
}

// FileConfig holds the CSV-per-user store location.
type FileConfig struct {
	Path string `toml:"path"`
}

// SQLiteConfig holds the sqlite database file location.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// S3Config holds S3 (or S3-compatible) object storage configuration
type S3Config struct {
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`   // Optional key prefix within bucket
	Region    string `toml:"region"`   // AWS region (e.g., "us-east-1")
	Endpoint  string `toml:"endpoint"` // Custom endpoint for S3-compatible stores (MinIO, R2)
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

// SurrealDBConfig holds SurrealDB connection settings
type SurrealDBConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Yahoo     YahooConfig     `toml:"yahoo"`
	CoinGecko CoinGeckoConfig `toml:"coingecko"`
}

// YahooConfig holds Yahoo Finance chart API configuration
type YahooConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// CoinGeckoConfig holds CoinGecko API configuration
type CoinGeckoConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *CoinGeckoConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`  // "console" or "json"
	Outputs  []string `toml:"outputs"` // "console", "file"
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:  "development",
		BaseCurrency: DefaultBaseCurrency,
		DefaultUser:  "default",
		Pricing: PricingConfig{
			Timeout:         "5s",
			FallbackUSDRate: 20.0,
			ExchangeSuffix:  ".MX",
			Concurrency:     4,
			CryptoIDs: map[string]string{
				"BTC":  "bitcoin",
				"ETH":  "ethereum",
				"SOL":  "solana",
				"ADA":  "cardano",
				"XRP":  "ripple",
				"DOGE": "dogecoin",
				"USDT": "tether",
				"USDC": "usd-coin",
			},
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			File:    FileConfig{Path: "data/portafolios"},
			SQLite:  SQLiteConfig{Path: "data/finanzas.db"},
			S3:      S3Config{Prefix: "", Region: "us-east-1"},
			SurrealDB: SurrealDBConfig{
				Address:   "ws://localhost:8000/rpc",
				Namespace: "finanzas",
				Database:  "finanzas",
				Username:  "root",
				Password:  "root",
			},
		},
		Clients: ClientsConfig{
			Yahoo: YahooConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "10s",
			},
			CoinGecko: CoinGeckoConfig{
				BaseURL:   "https://api.coingecko.com/api/v3",
				RateLimit: 2,
				Timeout:   "10s",
			},
		},
		Logging: LoggingConfig{
			Level:    "warn",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/finanzas.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded before env overrides apply.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Missing .env is fine
	_ = godotenv.Load()

	applyEnvOverrides(config)

	validateBaseCurrency(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FINANZAS_ENV"); env != "" {
		config.Environment = env
	}

	if bc := os.Getenv("FINANZAS_BASE_CURRENCY"); bc != "" {
		config.BaseCurrency = strings.ToUpper(bc)
	}

	if user := os.Getenv("FINANZAS_USER"); user != "" {
		config.DefaultUser = user
	}

	if level := os.Getenv("FINANZAS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if suffix, ok := os.LookupEnv("FINANZAS_EXCHANGE_SUFFIX"); ok {
		config.Pricing.ExchangeSuffix = suffix
	}

	if rate := os.Getenv("FINANZAS_FALLBACK_USD_RATE"); rate != "" {
		if r, err := strconv.ParseFloat(rate, 64); err == nil && r > 0 {
			config.Pricing.FallbackUSDRate = r
		}
	}

	if backend := os.Getenv("FINANZAS_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
	}

	if path := os.Getenv("FINANZAS_DATA_PATH"); path != "" {
		config.Storage.File.Path = filepath.Join(path, "portafolios")
		config.Storage.SQLite.Path = filepath.Join(path, "finanzas.db")
	}

	// S3 overrides
	if v := os.Getenv("FINANZAS_S3_BUCKET"); v != "" {
		config.Storage.S3.Bucket = v
	}
	if v := os.Getenv("FINANZAS_S3_ENDPOINT"); v != "" {
		config.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		config.Storage.S3.Region = v
	}

	if v := os.Getenv("FINANZAS_SURREALDB_ADDRESS"); v != "" {
		config.Storage.SurrealDB.Address = v
	}

	for _, name := range []string{"COINGECKO_API_KEY", "FINANZAS_COINGECKO_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			config.Clients.CoinGecko.APIKey = v
			break
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendSurrealDB:
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Pricing.FallbackUSDRate <= 0 {
		return fmt.Errorf("pricing.fallback_usd_rate must be positive, got %v", c.Pricing.FallbackUSDRate)
	}
	return nil
}

// validateBaseCurrency upper-cases BaseCurrency and falls back to MXN for
// anything go-money does not know.
func validateBaseCurrency(config *Config) {
	bc := strings.ToUpper(strings.TrimSpace(config.BaseCurrency))
	if money.GetCurrency(bc) == nil {
		bc = DefaultBaseCurrency
	}
	config.BaseCurrency = bc
}
