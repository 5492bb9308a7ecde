// Package coingecko provides a client for the CoinGecko public API
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"golang.org/x/time/rate"

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/interfaces"
	"github.com/luisfhm/finanzas/internal/models"
)

const (
	DefaultBaseURL   = "https://api.coingecko.com/api/v3"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 2 // requests per second; the public tier is tight
)

var (
	_ interfaces.CryptoQuoteClient = (*Client)(nil)
	_ interfaces.HistoryClient     = (*Client)(nil)
)

// Client implements crypto spot prices and daily history in USD
type Client struct {
	baseURL    string
	apiKey     string
	ids        map[string]string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithAPIKey sets the demo API key sent as x-cg-demo-api-key
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithCoinIDs maps tickers to CoinGecko coin ids. Unmapped tickers are
// looked up by their lower-cased symbol.
func WithCoinIDs(ids map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range ids {
			c.ids[strings.ToUpper(k)] = v
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new CoinGecko client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		ids:     make(map[string]string),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coingecko API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// CoinID returns the CoinGecko id used for ticker.
func (c *Client) CoinID(ticker string) string {
	if id, ok := c.ids[strings.ToUpper(strings.TrimSpace(ticker))]; ok {
		return id
	}
	return strings.ToLower(strings.TrimSpace(ticker))
}

// get performs a rate-limited GET request and decodes the JSON body
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("CoinGecko API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetUSDPrice returns the USD spot price of ticker.
func (c *Client) GetUSDPrice(ctx context.Context, ticker string) (float64, error) {
	id := c.CoinID(ticker)

	params := url.Values{}
	params.Set("ids", id)
	params.Set("vs_currencies", "usd")

	var body any
	if err := c.get(ctx, "/simple/price", params, &body); err != nil {
		return 0, err
	}

	// the response is keyed by coin id: {"bitcoin":{"usd":60000}}
	path := fmt.Sprintf(`$[%s]["usd"]`, strconv.Quote(id))
	val, err := jsonpath.Get(path, body)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ticker, models.ErrPriceUnavailable)
	}
	if list, ok := val.([]any); ok && len(list) > 0 {
		val = list[0]
	}
	price, ok := val.(float64)
	if !ok || price <= 0 || math.IsNaN(price) {
		return 0, fmt.Errorf("%s: %w", ticker, models.ErrPriceUnavailable)
	}
	return price, nil
}

type marketChartResponse struct {
	Prices [][2]float64 `json:"prices"` // [unix ms, price]
}

// GetDailyCloses returns one USD close per UTC day in [from, to], ascending.
// The last sample of each day is taken as its close.
func (c *Client) GetDailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, string, error) {
	days := int(math.Ceil(to.Sub(from).Hours()/24)) + 1
	if days < 1 {
		days = 1
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("days", strconv.Itoa(days))
	params.Set("interval", "daily")

	var resp marketChartResponse
	if err := c.get(ctx, "/coins/"+url.PathEscape(c.CoinID(ticker))+"/market_chart", params, &resp); err != nil {
		return nil, "", err
	}

	fromDay := from.UTC().Truncate(24 * time.Hour)
	toDay := to.UTC().Truncate(24 * time.Hour)

	bars := make([]models.PriceBar, 0, len(resp.Prices))
	for _, p := range resp.Prices {
		if p[1] <= 0 {
			continue
		}
		day := time.UnixMilli(int64(p[0])).UTC().Truncate(24 * time.Hour)
		if day.Before(fromDay) || day.After(toDay) {
			continue
		}
		if n := len(bars); n > 0 && bars[n-1].Date.Equal(day) {
			bars[n-1].Close = p[1]
			continue
		}
		bars = append(bars, models.PriceBar{Date: day, Close: p[1]})
	}
	if len(bars) == 0 {
		return nil, "", fmt.Errorf("%s: %w", ticker, models.ErrHistoryUnavailable)
	}
	return bars, "USD", nil
}
