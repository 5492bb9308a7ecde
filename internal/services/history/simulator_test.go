package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/models"
)

var today = time.Date(2024, 7, 31, 15, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return today.Truncate(24*time.Hour).AddDate(0, 0, offset)
}

type mockHistory struct {
	series   map[string][]models.PriceBar
	currency string
	symbols  []string
}

func (m *mockHistory) GetDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, string, error) {
	m.symbols = append(m.symbols, symbol)
	bars, ok := m.series[symbol]
	if !ok {
		return nil, "", models.ErrHistoryUnavailable
	}
	return bars, m.currency, nil
}

// fixedConverter multiplies USD by rate and passes other currencies through.
type fixedConverter struct{ rate decimal.Decimal }

func (c fixedConverter) ToBase(ctx context.Context, amount decimal.Decimal, currency string) decimal.Decimal {
	if currency == "USD" {
		return amount.Mul(c.rate)
	}
	return amount
}

func (c fixedConverter) BaseCurrency() string { return "MXN" }

func dailyBars(from, to int, close float64) []models.PriceBar {
	var bars []models.PriceBar
	for i := from; i <= to; i++ {
		bars = append(bars, models.PriceBar{Date: day(i), Close: close})
	}
	return bars
}

func newTestSimulator(equity, crypto *mockHistory) *Simulator {
	s := NewSimulator(equity, crypto, fixedConverter{rate: decimal.NewFromInt(20)}, ".MX", time.Second, common.NewSilentLogger())
	s.now = func() time.Time { return today }
	return s
}

func TestSimulate_OneGoodOneFailingTicker(t *testing.T) {
	equity := &mockHistory{
		series:   map[string][]models.PriceBar{"GOOD.MX": dailyBars(-30, 0, 10)},
		currency: "MXN",
	}
	sim := newTestSimulator(equity, &mockHistory{})

	holdings := []models.Holding{
		{Ticker: "GOOD", AssetClass: models.AssetEquity, Quantity: decimal.NewFromInt(3)},
		{Ticker: "BAD", AssetClass: models.AssetEquity, Quantity: decimal.NewFromInt(100)},
	}
	ts, err := sim.Simulate(context.Background(), holdings, 30, nil)
	require.NoError(t, err)

	require.Len(t, ts.Points, 31)
	for _, p := range ts.Points {
		assert.True(t, p.Total.Equal(decimal.NewFromInt(30)), "date %s total %s", p.Date.Format("2006-01-02"), p.Total)
	}
	assert.Equal(t, day(-30), ts.Points[0].Date)
	assert.Equal(t, day(0), ts.Points[30].Date)

	require.Len(t, ts.Skipped, 1)
	assert.Equal(t, "BAD", ts.Skipped[0].Ticker)
	assert.ElementsMatch(t, []string{"GOOD.MX", "BAD.MX"}, equity.symbols)
}

func TestSimulate_OuterJoinMissingIsZero(t *testing.T) {
	equity := &mockHistory{
		series: map[string][]models.PriceBar{
			// weekdays only
			"WALMEX.MX": {{Date: day(-3), Close: 60}, {Date: day(0), Close: 62}},
		},
		currency: "MXN",
	}
	crypto := &mockHistory{
		series:   map[string][]models.PriceBar{"BTC": dailyBars(-3, 0, 100)},
		currency: "USD",
	}
	sim := newTestSimulator(equity, crypto)

	holdings := []models.Holding{
		{Ticker: "walmex", AssetClass: models.AssetEquity, Quantity: decimal.NewFromInt(10)},
		{Ticker: "BTC", AssetClass: models.AssetCrypto, Quantity: decimal.RequireFromString("0.5")},
	}
	ts, err := sim.Simulate(context.Background(), holdings, 3, nil)
	require.NoError(t, err)

	require.Len(t, ts.Points, 4)
	want := []string{"1600", "1000", "1000", "1620"}
	for i, p := range ts.Points {
		assert.True(t, p.Total.Equal(decimal.RequireFromString(want[i])), "point %d: got %s", i, p.Total)
	}
	assert.Equal(t, "MXN", ts.Currency)
}

func TestSimulate_PointInTimeHoldings(t *testing.T) {
	equity := &mockHistory{
		series:   map[string][]models.PriceBar{"AMXB.MX": dailyBars(-4, 0, 10)},
		currency: "MXN",
	}
	sim := newTestSimulator(equity, nil)

	holdings := []models.Holding{
		{Ticker: "AMXB", AssetClass: models.AssetEquity, Quantity: decimal.NewFromInt(5), Since: day(-2)},
		{Ticker: "AMXB", AssetClass: models.AssetEquity, Quantity: decimal.NewFromInt(10), Since: day(-4)},
		{Ticker: "AMXB", AssetClass: models.AssetEquity, Quantity: decimal.NewFromInt(-3), Since: day(0)},
	}
	ts, err := sim.Simulate(context.Background(), holdings, 4, nil)
	require.NoError(t, err)

	want := []int64{100, 100, 150, 150, 120}
	require.Len(t, ts.Points, len(want))
	for i, p := range ts.Points {
		assert.True(t, p.Total.Equal(decimal.NewFromInt(want[i])), "point %d: got %s", i, p.Total)
	}
}

func TestSimulate_FiltersClasses(t *testing.T) {
	equity := &mockHistory{series: map[string][]models.PriceBar{"AAPL.MX": dailyBars(-1, 0, 10)}, currency: "MXN"}
	crypto := &mockHistory{series: map[string][]models.PriceBar{"ETH": dailyBars(-1, 0, 5)}, currency: "USD"}
	sim := newTestSimulator(equity, crypto)

	holdings := []models.Holding{
		{Ticker: "AAPL", AssetClass: models.AssetEquity, Quantity: decimal.NewFromInt(1)},
		{Ticker: "ETH", AssetClass: models.AssetCrypto, Quantity: decimal.NewFromInt(1)},
		{Ticker: "CETES28", AssetClass: models.AssetFixedIncome, Quantity: decimal.NewFromInt(1000)},
		{Ticker: "", AssetClass: models.AssetEquity, Quantity: decimal.NewFromInt(1)},
	}

	ts, err := sim.Simulate(context.Background(), holdings, 1, []models.AssetClass{models.AssetCrypto})
	require.NoError(t, err)
	require.Len(t, ts.Points, 2)
	assert.True(t, ts.Points[0].Total.Equal(decimal.NewFromInt(100)))
	assert.Empty(t, equity.symbols)

	// fixed income is excluded, not zero-filled or skipped
	ts, err = sim.Simulate(context.Background(), holdings, 1, []models.AssetClass{models.AssetFixedIncome})
	require.NoError(t, err)
	assert.True(t, ts.Empty())
	assert.Empty(t, ts.Skipped)
}

func TestSimulate_NoHistoryIsEmptyNotError(t *testing.T) {
	sim := newTestSimulator(&mockHistory{}, &mockHistory{})
	holdings := []models.Holding{{Ticker: "NOPE", AssetClass: models.AssetEquity, Quantity: decimal.NewFromInt(1)}}

	ts, err := sim.Simulate(context.Background(), holdings, 30, nil)
	require.NoError(t, err)
	assert.True(t, ts.Empty())
	assert.NotNil(t, ts.Points)
	assert.Len(t, ts.Skipped, 1)
}

func TestSimulate_InvalidLookback(t *testing.T) {
	sim := newTestSimulator(&mockHistory{}, &mockHistory{})
	_, err := sim.Simulate(context.Background(), nil, 0, nil)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestSimulate_IgnoresBarsOutsideWindow(t *testing.T) {
	equity := &mockHistory{series: map[string][]models.PriceBar{"X.MX": dailyBars(-10, 2, 1)}, currency: "MXN"}
	sim := newTestSimulator(equity, nil)

	ts, err := sim.Simulate(context.Background(), []models.Holding{{Ticker: "X", AssetClass: models.AssetEquity, Quantity: decimal.NewFromInt(1)}}, 5, nil)
	require.NoError(t, err)
	assert.Len(t, ts.Points, 6)
}

func TestHoldingsFromRaw(t *testing.T) {
	raws := []models.RawEntry{
		{Ticker: " btc ", AssetClass: "Cripto", Quantity: "0.5", Date: "2024-01-01"},
		{Ticker: "", AssetClass: "Cripto", Quantity: "1"},
		{Ticker: "AMXB", AssetClass: "Acción/ETF", Quantity: "n/a"},
		{Ticker: "AMXB", AssetClass: "Acción/ETF", Quantity: "4", Operation: "Venta"},
		{Ticker: "X", AssetClass: "Bonos", Quantity: "1"},
	}
	holdings := HoldingsFromRaw(raws)

	require.Len(t, holdings, 3)
	assert.Equal(t, "BTC", holdings[0].Ticker)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), holdings[0].Since)
	assert.True(t, holdings[1].Quantity.IsZero(), "unparsable quantity is coerced to zero")
	assert.True(t, holdings[1].Since.IsZero())
	assert.True(t, holdings[2].Quantity.Equal(decimal.NewFromInt(-4)))
}

func TestHoldingsFromTransactions(t *testing.T) {
	txs := []models.Transaction{
		{Ticker: "ETH", AssetClass: models.AssetCrypto, Quantity: decimal.NewFromInt(2), Operation: models.OpSell, Date: day(-1)},
	}
	h := HoldingsFromTransactions(txs)
	require.Len(t, h, 1)
	assert.True(t, h[0].Quantity.Equal(decimal.NewFromInt(-2)))
	assert.Equal(t, day(-1), h[0].Since)
}
