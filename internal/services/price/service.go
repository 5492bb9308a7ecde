// Package price resolves current unit prices in the base currency
package price

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/interfaces"
	"github.com/luisfhm/finanzas/internal/models"
)

// DefaultUSDRate is the USD->base rate used when the FX provider cannot be reached.
const DefaultUSDRate = 20.0

// DefaultTimeout bounds every quote and FX fetch.
const DefaultTimeout = 5 * time.Second

var _ interfaces.PriceResolver = (*Service)(nil)

// Config holds resolver settings
type Config struct {
	BaseCurrency    string
	ExchangeSuffix  string // appended to equity tickers that lack it
	FallbackUSDRate float64
	Timeout         time.Duration
	Concurrency     int
}

// pinger is implemented by quote clients that can probe connectivity.
type pinger interface {
	Ping(ctx context.Context) error
}

// Service resolves prices through the class-specific provider. Any provider
// failure yields an Unavailable point for that ticker only.
type Service struct {
	equity interfaces.EquityQuoteClient
	crypto interfaces.CryptoQuoteClient
	fx     interfaces.FXClient
	cfg    Config
	logger *common.Logger

	mu           sync.Mutex
	usdRate      decimal.Decimal
	rateLoaded   bool
	rateFallback bool
}

// NewService creates a price service. Any client may be nil, in which case
// its asset class always resolves to Unavailable.
func NewService(equity interfaces.EquityQuoteClient, crypto interfaces.CryptoQuoteClient, fx interfaces.FXClient, cfg Config, logger *common.Logger) *Service {
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = common.DefaultBaseCurrency
	}
	cfg.BaseCurrency = strings.ToUpper(cfg.BaseCurrency)
	if cfg.FallbackUSDRate <= 0 {
		cfg.FallbackUSDRate = DefaultUSDRate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Service{
		equity: equity,
		crypto: crypto,
		fx:     fx,
		cfg:    cfg,
		logger: logger,
	}
}

// BaseCurrency returns the currency prices are resolved in.
func (s *Service) BaseCurrency() string {
	return s.cfg.BaseCurrency
}

// ExchangeSuffix returns the regional suffix applied to equity tickers.
func (s *Service) ExchangeSuffix() string {
	return s.cfg.ExchangeSuffix
}

// Timeout returns the bound applied to each provider call.
func (s *Service) Timeout() time.Duration {
	return s.cfg.Timeout
}

// ResolvePrice returns the current unit price of ticker in the base currency.
func (s *Service) ResolvePrice(ctx context.Context, class models.AssetClass, ticker string) models.PricePoint {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	point := models.PricePoint{
		Ticker:     ticker,
		AssetClass: class,
		Price:      decimal.Zero,
		Currency:   s.cfg.BaseCurrency,
		Source:     models.SourceUnavailable,
	}

	var price decimal.Decimal
	var err error
	switch class {
	case models.AssetCrypto:
		price, err = s.resolveCrypto(ctx, ticker)
	case models.AssetEquity:
		price, err = s.resolveEquity(ctx, ticker)
	default:
		// fixed income, real estate and other are valued from manual prices only
		return point
	}

	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Str("class", string(class)).Msg("Price unavailable")
		return point
	}
	if !price.IsPositive() {
		s.logger.Warn().Str("ticker", ticker).Str("class", string(class)).Msg("Price unavailable: non-positive quote")
		return point
	}

	point.Price = price
	point.Source = models.SourceLive
	return point
}

func (s *Service) resolveCrypto(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if s.crypto == nil {
		return decimal.Zero, models.ErrPriceUnavailable
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	usd, err := s.crypto.GetUSDPrice(fetchCtx, ticker)
	if err != nil {
		return decimal.Zero, err
	}
	return s.ToBase(ctx, decimal.NewFromFloat(usd), "USD"), nil
}

func (s *Service) resolveEquity(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if s.equity == nil {
		return decimal.Zero, models.ErrPriceUnavailable
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	q, err := s.equity.GetQuote(fetchCtx, AdjustSymbol(models.AssetEquity, ticker, s.cfg.ExchangeSuffix))
	if err != nil {
		return decimal.Zero, err
	}
	return s.ToBase(ctx, decimal.NewFromFloat(q.Price), q.Currency), nil
}

// ToBase converts amount quoted in currency to the base currency. A missing
// currency is taken as USD and converts through the cached rate, as does USD.
// The base currency and any other currency pass through unconverted.
func (s *Service) ToBase(ctx context.Context, amount decimal.Decimal, currency string) decimal.Decimal {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	switch currency {
	case s.cfg.BaseCurrency:
		return amount
	case "USD":
		return amount.Mul(s.USDRate(ctx))
	default:
		s.logger.Warn().Str("currency", currency).Str("base", s.cfg.BaseCurrency).Msg("No conversion for currency, passing price through")
		return amount
	}
}

// USDRate returns the cached USD->base rate, fetching it on first use. A
// failed fetch caches the fallback rate until InvalidateFX.
func (s *Service) USDRate(ctx context.Context) decimal.Decimal {
	if s.cfg.BaseCurrency == "USD" {
		return decimal.NewFromInt(1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rateLoaded {
		return s.usdRate
	}

	rate, err := s.fetchUSDRate(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Float64("fallback", s.cfg.FallbackUSDRate).Str("base", s.cfg.BaseCurrency).Msg("FX unavailable, using fallback rate")
		s.usdRate = decimal.NewFromFloat(s.cfg.FallbackUSDRate)
		s.rateFallback = true
	} else {
		s.usdRate = rate
		s.rateFallback = false
	}
	s.rateLoaded = true
	return s.usdRate
}

func (s *Service) fetchUSDRate(ctx context.Context) (decimal.Decimal, error) {
	if s.fx == nil {
		return decimal.Zero, models.ErrFXUnavailable
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	rate, err := s.fx.GetRate(fetchCtx, "USD", s.cfg.BaseCurrency)
	if err != nil {
		return decimal.Zero, err
	}
	if rate <= 0 {
		return decimal.Zero, models.ErrFXUnavailable
	}
	return decimal.NewFromFloat(rate), nil
}

// UsingFallbackRate reports whether the cached rate is the fallback constant.
func (s *Service) UsingFallbackRate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rateLoaded && s.rateFallback
}

// InvalidateFX drops the cached rate; the next conversion refetches it.
func (s *Service) InvalidateFX() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLoaded = false
	s.rateFallback = false
	s.usdRate = decimal.Zero
}

// Online reports whether the equity provider answers within the timeout.
// Clients without a connectivity probe are assumed online.
func (s *Service) Online(ctx context.Context) bool {
	p, ok := s.equity.(pinger)
	if !ok {
		return s.equity != nil
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return p.Ping(fetchCtx) == nil
}

// AdjustSymbol returns the provider symbol for ticker. Equity tickers get the
// regional exchange suffix appended when they lack it; FX pairs and indices
// are left alone.
func AdjustSymbol(class models.AssetClass, ticker, suffix string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if class != models.AssetEquity || suffix == "" {
		return ticker
	}
	suffix = strings.ToUpper(suffix)
	if strings.HasSuffix(ticker, suffix) || strings.Contains(ticker, "=") || strings.HasPrefix(ticker, "^") {
		return ticker
	}
	return ticker + suffix
}
