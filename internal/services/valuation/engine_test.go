package valuation

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luisfhm/finanzas/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(id, ticker string, class models.AssetClass, qty, price string) models.Transaction {
	return models.Transaction{
		ID:         id,
		Date:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		AssetClass: class,
		Ticker:     ticker,
		Quantity:   d(qty),
		UnitPrice:  d(price),
		Operation:  models.OpBuy,
		Sector:     models.DefaultSector,
	}
}

func live(ticker, price string) models.PricePoint {
	return models.PricePoint{Ticker: ticker, Price: d(price), Source: models.SourceLive, Currency: "MXN"}
}

func unavailable(ticker string) models.PricePoint {
	return models.PricePoint{Ticker: ticker, Price: decimal.Zero, Source: models.SourceUnavailable}
}

func TestValuate_BTCScenario(t *testing.T) {
	txs := []models.Transaction{tx("1", "BTC", models.AssetCrypto, "0.5", "400000")}
	// 60000 USD x 20 MXN/USD as resolved upstream
	rows := Valuate(txs, map[string]models.PricePoint{"BTC": live("BTC", "1200000")})

	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, models.StatusResolved, r.Status)
	assert.Equal(t, models.SourceLive, r.Source)
	assert.True(t, r.CurrentPrice.Decimal.Equal(d("1200000")))
	assert.True(t, r.MarketValue.Decimal.Equal(d("600000")))
	assert.True(t, r.CostBasis.Equal(d("200000")))
	assert.True(t, r.GainLoss.Decimal.Equal(d("400000")))
}

func TestValuate_XYZAwaitsManualPrice(t *testing.T) {
	txs := []models.Transaction{tx("1", "XYZ", models.AssetEquity, "10", "50")}
	rows := Valuate(txs, map[string]models.PricePoint{"XYZ": unavailable("XYZ")})

	r := rows[0]
	assert.Equal(t, models.StatusNeedsManualPrice, r.Status)
	assert.Equal(t, models.SourceUnavailable, r.Source)
	assert.False(t, r.CurrentPrice.Valid)
	assert.False(t, r.MarketValue.Valid, "market value must not default to zero")
	assert.False(t, r.GainLoss.Valid)
	assert.True(t, r.CostBasis.Equal(d("500")))

	positions, total := Aggregate(rows)
	require.Len(t, positions, 1)
	assert.Equal(t, models.StatusNeedsManualPrice, positions[0].Status)
	assert.False(t, positions[0].MarketValue().Valid)
	assert.False(t, positions[0].GainLoss().Valid)
	assert.True(t, positions[0].Totals.CostBasis.Equal(d("500")))
	assert.Equal(t, 1, total.Pending)
	assert.Equal(t, []string{"XYZ"}, PendingTickers(rows))
}

func TestValuate_Precedence(t *testing.T) {
	withManual := func(t models.Transaction, p string) models.Transaction {
		t.ManualPrice = decimal.NewNullDecimal(d(p))
		return t
	}

	t.Run("live beats manual", func(t *testing.T) {
		txs := []models.Transaction{withManual(tx("1", "AMXB", models.AssetEquity, "1", "10"), "99")}
		rows := Valuate(txs, map[string]models.PricePoint{"AMXB": live("AMXB", "15")})
		assert.Equal(t, models.SourceLive, rows[0].Source)
		assert.True(t, rows[0].CurrentPrice.Decimal.Equal(d("15")))
	})

	t.Run("manual when live unavailable", func(t *testing.T) {
		txs := []models.Transaction{withManual(tx("1", "AMXB", models.AssetEquity, "1", "10"), "99")}
		rows := Valuate(txs, map[string]models.PricePoint{"AMXB": unavailable("AMXB")})
		assert.Equal(t, models.SourceManual, rows[0].Source)
		assert.True(t, rows[0].CurrentPrice.Decimal.Equal(d("99")))
	})

	t.Run("manual when live is zero", func(t *testing.T) {
		txs := []models.Transaction{withManual(tx("1", "CASA", models.AssetRealEstate, "1", "10"), "12")}
		rows := Valuate(txs, map[string]models.PricePoint{"CASA": live("CASA", "0")})
		assert.Equal(t, models.SourceManual, rows[0].Source)
	})

	t.Run("manual is per ticker, last write wins", func(t *testing.T) {
		txs := []models.Transaction{
			withManual(tx("1", "CETES", models.AssetFixedIncome, "100", "10"), "10.5"),
			tx("2", "CETES", models.AssetFixedIncome, "50", "10.2"),
			withManual(tx("3", "CETES", models.AssetFixedIncome, "10", "10.4"), "10.8"),
		}
		rows := Valuate(txs, nil)
		for _, r := range rows {
			assert.Equal(t, models.SourceManual, r.Source, r.ID)
			assert.True(t, r.CurrentPrice.Decimal.Equal(d("10.8")), r.ID)
		}
	})

	t.Run("neither", func(t *testing.T) {
		rows := Valuate([]models.Transaction{tx("1", "X", models.AssetOther, "1", "1")}, nil)
		assert.Equal(t, models.StatusNeedsManualPrice, rows[0].Status)
	})
}

func TestValuate_SellIsSigned(t *testing.T) {
	sell := tx("2", "AAPL", models.AssetEquity, "4", "150")
	sell.Operation = models.OpSell
	txs := []models.Transaction{tx("1", "AAPL", models.AssetEquity, "10", "100"), sell}

	rows := Valuate(txs, map[string]models.PricePoint{"AAPL": live("AAPL", "200")})
	assert.True(t, rows[1].CostBasis.Equal(d("-600")))
	assert.True(t, rows[1].MarketValue.Decimal.Equal(d("-800")))
	assert.True(t, rows[1].NetValue.Equal(d("-600")))

	positions, _ := Aggregate(rows)
	require.Len(t, positions, 1)
	p := positions[0]
	assert.True(t, p.Totals.Quantity.Equal(d("6")))
	assert.True(t, p.Totals.CostBasis.Equal(d("400")))
	assert.True(t, p.Totals.MarketValue.Equal(d("1200")))
	assert.True(t, p.Totals.GainLoss.Equal(d("800")))
}

func TestValuate_GainLossIdentityExact(t *testing.T) {
	txs := []models.Transaction{
		tx("1", "A", models.AssetEquity, "0.3333", "10.01"),
		tx("2", "B", models.AssetCrypto, "0.00012345", "1234567.891"),
		tx("3", "C", models.AssetEquity, "7", "0.1"),
	}
	prices := map[string]models.PricePoint{
		"A": live("A", "12.345678"),
		"B": live("B", "1300000.07"),
		"C": live("C", "0.3"),
	}
	for _, r := range Valuate(txs, prices) {
		require.True(t, r.Resolved())
		assert.True(t, r.MarketValue.Decimal.Sub(r.CostBasis).Equal(r.GainLoss.Decimal), r.ID)
	}
}

func TestValuate_Fees(t *testing.T) {
	withFee := tx("1", "AAPL", models.AssetEquity, "10", "100")
	withFee.FeePercent = d("0.25")
	rows := Valuate([]models.Transaction{withFee}, nil)
	assert.True(t, rows[0].Fees.Equal(d("2.5")))
}

func TestValuate_DoesNotMutateInputs(t *testing.T) {
	txs := []models.Transaction{tx("1", "BTC", models.AssetCrypto, "1", "1")}
	prices := map[string]models.PricePoint{"BTC": live("BTC", "2")}
	Valuate(txs, prices)
	assert.Len(t, prices, 1)
	assert.False(t, txs[0].ManualPrice.Valid)
}

func TestApplyManualPrices_SetsEveryRowOfTicker(t *testing.T) {
	txs := []models.Transaction{
		tx("1", "XYZ", models.AssetEquity, "10", "50"),
		tx("2", "ABC", models.AssetEquity, "1", "5"),
		tx("3", "XYZ", models.AssetEquity, "5", "55"),
	}

	updated, changed, err := ApplyManualPrices(txs, map[string]decimal.Decimal{"xyz": d("60")})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, changed)
	assert.False(t, txs[0].ManualPrice.Valid, "input untouched")

	rows := Valuate(updated, map[string]models.PricePoint{"XYZ": unavailable("XYZ")})
	assert.Equal(t, models.SourceManual, rows[0].Source)
	assert.True(t, rows[0].MarketValue.Decimal.Equal(d("600")))
	assert.True(t, rows[2].GainLoss.Decimal.Equal(d("25")))
	assert.Equal(t, models.StatusNeedsManualPrice, rows[1].Status)
}

func TestApplyManualPrices_Rejects(t *testing.T) {
	txs := []models.Transaction{tx("1", "XYZ", models.AssetEquity, "10", "50")}

	_, _, err := ApplyManualPrices(txs, map[string]decimal.Decimal{"XYZ": decimal.Zero})
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "manual_price", ve.Field)

	_, _, err = ApplyManualPrices(txs, map[string]decimal.Decimal{"NOPE": d("1")})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "ticker", ve.Field)
}

func TestValue_AssemblesPass(t *testing.T) {
	txs := []models.Transaction{
		tx("1", "BTC", models.AssetCrypto, "0.5", "400000"),
		tx("2", "XYZ", models.AssetEquity, "10", "50"),
	}
	prices := map[string]models.PricePoint{"BTC": live("BTC", "1200000"), "XYZ": unavailable("XYZ")}
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	v := Value("u1", "mxn", txs, prices, asOf)
	assert.Equal(t, "MXN", v.BaseCurrency)
	assert.Equal(t, asOf, v.AsOf)
	assert.Len(t, v.Rows, 2)
	assert.Len(t, v.Positions, 2)
	assert.False(t, v.Complete())
	assert.True(t, v.Total.CostBasis.Equal(d("200500")))
	assert.True(t, v.Total.MarketValue.Equal(d("600000")))
	assert.True(t, v.Total.GainLoss.Equal(d("400000")))
}
