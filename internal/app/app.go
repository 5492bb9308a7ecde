// Package app wires configuration, storage, price providers and services
// into one composition root for the CLI.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/luisfhm/finanzas/internal/clients/coingecko"
	"github.com/luisfhm/finanzas/internal/clients/yahoo"
	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/interfaces"
	"github.com/luisfhm/finanzas/internal/services/history"
	"github.com/luisfhm/finanzas/internal/services/portfolio"
	"github.com/luisfhm/finanzas/internal/services/price"
	"github.com/luisfhm/finanzas/internal/storage"
)

// App holds all initialized services, clients and storage.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Store            interfaces.TransactionStore
	YahooClient      *yahoo.Client
	CoinGeckoClient  *coingecko.Client
	PriceService     *price.Service
	Simulator        *history.Simulator
	PortfolioService interfaces.PortfolioService
	StartupTime      time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath returns configPath, else FINANZAS_CONFIG, else
// finanzas.toml next to the binary, else config/finanzas.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("FINANZAS_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "finanzas.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/finanzas.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration from configPath (resolved as in
// ResolveConfigPath) and initializes everything.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewAppWithConfig(ctx, config, common.NewLoggerFromConfig(config.Logging))
}

// NewAppWithConfig initializes clients and services from an already loaded config.
func NewAppWithConfig(ctx context.Context, config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	store, err := storage.NewTransactionStore(ctx, logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	yahooClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithLogger(logger.WithComponent("yahoo")),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
		yahoo.WithPingSymbol(pingSymbol(config.BaseCurrency)),
	)

	coingeckoClient := coingecko.NewClient(
		coingecko.WithBaseURL(config.Clients.CoinGecko.BaseURL),
		coingecko.WithAPIKey(config.Clients.CoinGecko.APIKey),
		coingecko.WithCoinIDs(config.Pricing.CryptoIDs),
		coingecko.WithLogger(logger.WithComponent("coingecko")),
		coingecko.WithRateLimit(config.Clients.CoinGecko.RateLimit),
		coingecko.WithTimeout(config.Clients.CoinGecko.GetTimeout()),
	)

	timeout := config.Pricing.GetTimeout()
	priceService := price.NewService(yahooClient, coingeckoClient, yahooClient, price.Config{
		BaseCurrency:    config.BaseCurrency,
		ExchangeSuffix:  config.Pricing.ExchangeSuffix,
		FallbackUSDRate: config.Pricing.FallbackUSDRate,
		Timeout:         timeout,
		Concurrency:     config.Pricing.Concurrency,
	}, logger.WithComponent("price"))

	simulator := history.NewSimulator(yahooClient, coingeckoClient, priceService,
		config.Pricing.ExchangeSuffix, timeout, logger.WithComponent("history"))

	portfolioService := portfolio.NewService(
		store,
		priceService,
		simulator,
		yahoo.NewProfileClient(logger.WithComponent("profile")),
		priceService.BaseCurrency(),
		config.Pricing.ExchangeSuffix,
		logger.WithComponent("portfolio"),
	)

	a := &App{
		Config:           config,
		Logger:           logger,
		Store:            store,
		YahooClient:      yahooClient,
		CoinGeckoClient:  coingeckoClient,
		PriceService:     priceService,
		Simulator:        simulator,
		PortfolioService: portfolioService,
		StartupTime:      startupStart,
	}

	logger.Debug().
		Str("backend", config.Storage.Backend).
		Str("base_currency", priceService.BaseCurrency()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}

// pingSymbol probes the USD pair of the base currency, which every valuation
// needs anyway; a USD base has no pair and falls back to the client default.
func pingSymbol(baseCurrency string) string {
	if baseCurrency == "" || baseCurrency == "USD" {
		return ""
	}
	return yahoo.PairSymbol("USD", baseCurrency)
}
