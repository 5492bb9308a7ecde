package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luisfhm/finanzas/internal/models"
)

func TestGetUSDPrice_MapsTickerToCoinID(t *testing.T) {
	var gotIDs, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		gotIDs = r.URL.Query().Get("ids")
		gotKey = r.Header.Get("x-cg-demo-api-key")
		fmt.Fprint(w, `{"bitcoin":{"usd":60000}}`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithAPIKey("demo"), WithCoinIDs(map[string]string{"btc": "bitcoin"}))
	price, err := client.GetUSDPrice(context.Background(), "BTC")
	require.NoError(t, err)

	assert.Equal(t, 60000.0, price)
	assert.Equal(t, "bitcoin", gotIDs)
	assert.Equal(t, "demo", gotKey)
}

func TestGetUSDPrice_FallsBackToLowercaseTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{%q:{"usd":1.5}}`, r.URL.Query().Get("ids"))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	assert.Equal(t, "usd-coin", NewClient(WithCoinIDs(map[string]string{"USDC": "usd-coin"})).CoinID("usdc"))

	price, err := client.GetUSDPrice(context.Background(), "Monero")
	require.NoError(t, err)
	assert.Equal(t, 1.5, price)
}

func TestGetUSDPrice_UnknownCoinUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).GetUSDPrice(context.Background(), "NOTACOIN")
	assert.True(t, errors.Is(err, models.ErrPriceUnavailable))
}

func TestGetUSDPrice_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).GetUSDPrice(context.Background(), "BTC")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestGetDailyCloses_OnePerDay(t *testing.T) {
	day := func(d, h int) int64 { return time.Date(2024, 6, d, h, 0, 0, 0, time.UTC).UnixMilli() }
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/market_chart", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		fmt.Fprintf(w, `{"prices":[[%d,100],[%d,110],[%d,120],[%d,130]]}`, day(1, 0), day(2, 0), day(2, 18), day(3, 0))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithCoinIDs(map[string]string{"BTC": "bitcoin"}))
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	bars, currency, err := client.GetDailyCloses(context.Background(), "BTC", from, to)
	require.NoError(t, err)

	assert.Equal(t, "USD", currency)
	require.Len(t, bars, 3)
	assert.Equal(t, 120.0, bars[1].Close, "last sample of the day wins")
	assert.Equal(t, to, bars[2].Date)
}
