// Package yahoo provides a client for the Yahoo Finance chart API
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/interfaces"
	"github.com/luisfhm/finanzas/internal/models"
)

const (
	DefaultBaseURL    = "https://query1.finance.yahoo.com"
	DefaultTimeout    = 10 * time.Second
	DefaultRateLimit  = 5 // requests per second
	DefaultPingSymbol = "^GSPC"
	userAgent         = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

var (
	_ interfaces.EquityQuoteClient = (*Client)(nil)
	_ interfaces.FXClient          = (*Client)(nil)
	_ interfaces.HistoryClient     = (*Client)(nil)
)

// Client implements equity quotes, FX rates and daily history over the chart API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	pingSymbol string
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
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

// WithPingSymbol sets the symbol quoted by Ping
func WithPingSymbol(symbol string) ClientOption {
	return func(c *Client) {
		if symbol != "" {
			c.pingSymbol = symbol
		}
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     common.NewSilentLogger(),
		pingSymbol: DefaultPingSymbol,
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
	return fmt.Sprintf("yahoo API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		Currency           string  `json:"currency"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			// null closes appear on halted days
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// get performs a rate-limited GET request and decodes the JSON body
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", c.baseURL+path).Msg("Yahoo API request")

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

func (c *Client) chart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	path := "/v8/finance/chart/" + url.PathEscape(symbol)

	var resp chartResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Chart.Error.Description, Endpoint: path}
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: empty chart result", symbol)
	}
	return &resp.Chart.Result[0], nil
}

// GetQuote returns the regular market price and native currency of symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	res, err := c.chart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	if res.Meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("%s: %w", symbol, models.ErrPriceUnavailable)
	}
	return &models.Quote{
		Symbol:   symbol,
		Price:    res.Meta.RegularMarketPrice,
		Currency: strings.ToUpper(res.Meta.Currency),
	}, nil
}

// GetRate returns the spot rate from->to via the "<FROM><TO>=X" pair.
func (c *Client) GetRate(ctx context.Context, from, to string) (float64, error) {
	pair := PairSymbol(from, to)
	q, err := c.GetQuote(ctx, pair)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %v", pair, models.ErrFXUnavailable, err)
	}
	return q.Price, nil
}

// PairSymbol returns the chart symbol of an FX pair, e.g. "USDMXN=X".
func PairSymbol(from, to string) string {
	return strings.ToUpper(from) + strings.ToUpper(to) + "=X"
}

// GetDailyCloses returns one close per UTC day in [from, to], ascending.
func (c *Client) GetDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, string, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", strconv.FormatInt(from.Unix(), 10))
	// period2 is exclusive
	params.Set("period2", strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10))

	res, err := c.chart(ctx, symbol, params)
	if err != nil {
		return nil, "", err
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, "", fmt.Errorf("%s: %w", symbol, models.ErrHistoryUnavailable)
	}

	closes := res.Indicators.Quote[0].Close
	bars := make([]models.PriceBar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		day := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		if n := len(bars); n > 0 && bars[n-1].Date.Equal(day) {
			bars[n-1].Close = *closes[i]
			continue
		}
		bars = append(bars, models.PriceBar{Date: day, Close: *closes[i]})
	}
	if len(bars) == 0 {
		return nil, "", fmt.Errorf("%s: %w", symbol, models.ErrHistoryUnavailable)
	}

	c.logger.Debug().Str("symbol", symbol).Int("count", len(bars)).Msg("Fetched daily closes")
	return bars, strings.ToUpper(res.Meta.Currency), nil
}

// Ping reports whether the chart API is reachable. Any HTTP answer counts.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetQuote(ctx, c.pingSymbol)
	var apiErr *APIError
	if err == nil || errors.As(err, &apiErr) || errors.Is(err, models.ErrPriceUnavailable) {
		return nil
	}
	return err
}
