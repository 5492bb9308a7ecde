package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, "MXN", cfg.BaseCurrency)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, ".MX", cfg.Pricing.ExchangeSuffix)
	assert.Equal(t, 20.0, cfg.Pricing.FallbackUSDRate)
	assert.Equal(t, 5*time.Second, cfg.Pricing.GetTimeout())
	assert.Equal(t, "bitcoin", cfg.Pricing.CryptoIDs["BTC"])
	require.NoError(t, cfg.Validate())
}

func TestConfig_GetTimeout_InvalidFallsBack(t *testing.T) {
	p := PricingConfig{Timeout: "soon"}
	if got := p.GetTimeout(); got != 5*time.Second {
		t.Errorf("GetTimeout() = %v, want 5s", got)
	}
	y := YahooConfig{Timeout: "250ms"}
	if got := y.GetTimeout(); got != 250*time.Millisecond {
		t.Errorf("GetTimeout() = %v, want 250ms", got)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("FINANZAS_BASE_CURRENCY", "usd")
	t.Setenv("FINANZAS_STORAGE_BACKEND", "SQLite")
	t.Setenv("FINANZAS_DATA_PATH", "/tmp/fz")
	t.Setenv("FINANZAS_EXCHANGE_SUFFIX", "")
	t.Setenv("COINGECKO_API_KEY", "cg-key")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join("/tmp/fz", "finanzas.db"), cfg.Storage.SQLite.Path)
	assert.Equal(t, filepath.Join("/tmp/fz", "portafolios"), cfg.Storage.File.Path)
	assert.Equal(t, "", cfg.Pricing.ExchangeSuffix)
	assert.Equal(t, "cg-key", cfg.Clients.CoinGecko.APIKey)
}

func TestLoadConfig_FileMergeAndValidation(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
base_currency = "eur"

[pricing]
timeout = "2s"
concurrency = 8

[pricing.crypto_ids]
PEPE = "pepe"
`), 0644))
	require.NoError(t, os.WriteFile(override, []byte(`
[storage]
backend = "sqlite"
`), 0644))

	cfg, err := LoadConfig(base, override, filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "EUR", cfg.BaseCurrency)
	assert.Equal(t, 2*time.Second, cfg.Pricing.GetTimeout())
	assert.Equal(t, 8, cfg.Pricing.Concurrency)
	assert.Equal(t, "pepe", cfg.Pricing.CryptoIDs["PEPE"])
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
}

func TestLoadConfig_UnknownCurrencyDefaultsToMXN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	require.NoError(t, os.WriteFile(path, []byte(`base_currency = "ZZZ"`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "MXN", cfg.BaseCurrency)
}

func TestLoadConfig_RejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\nbackend = \"badger\"\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "badger")
}

func TestConfig_ValidateS3RequiresBucket(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.Backend = BackendS3
	assert.Error(t, cfg.Validate())

	cfg.Storage.S3.Bucket = "finanzas"
	assert.NoError(t, cfg.Validate())
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,200,000.00", FormatMoney(decimal.NewFromInt(1200000), "USD"))
	assert.Equal(t, "-$12.35", FormatMoney(decimal.RequireFromString("-12.345"), "USD"))
	assert.Equal(t, "12.50 XXQ", FormatMoney(decimal.RequireFromString("12.5"), "XXQ"))
	assert.Equal(t, int32(0), CurrencyFraction("JPY"))
}
