package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssetClass(t *testing.T) {
	tests := []struct {
		in   string
		want AssetClass
	}{
		{"Acción/ETF", AssetEquity},
		{"acción/etf", AssetEquity},
		{"equity", AssetEquity},
		{"Bolsa", AssetEquity},
		{" Cripto ", AssetCrypto},
		{"CETES", AssetFixedIncome},
		{"Inmueble", AssetRealEstate},
		{"Otros", AssetOther},
		{"real_estate", AssetRealEstate},
	}
	for _, tt := range tests {
		got, err := ParseAssetClass(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseAssetClass("Bonos")
	assert.Error(t, err)
}

func TestAssetClass_LabelRoundTrip(t *testing.T) {
	for _, a := range AssetClasses {
		got, err := ParseAssetClass(a.Label())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	assert.True(t, AssetEquity.HasLivePrice())
	assert.True(t, AssetCrypto.HasLivePrice())
	assert.False(t, AssetFixedIncome.HasLivePrice())
	assert.False(t, AssetRealEstate.HasLivePrice())
	assert.False(t, AssetOther.HasLivePrice())
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation("")
	require.NoError(t, err)
	assert.Equal(t, OpBuy, op)

	op, err = ParseOperation("Venta")
	require.NoError(t, err)
	assert.Equal(t, OpSell, op)
	assert.Equal(t, "Venta", op.Label())

	_, err = ParseOperation("short")
	assert.Error(t, err)
}

func TestTransactionPatch_ApplyKeepsID(t *testing.T) {
	tx := Transaction{
		ID:        "abc",
		Date:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Ticker:    "AAPL",
		Quantity:  decimal.NewFromInt(1),
		Operation: OpBuy,
	}
	ticker := "MSFT"
	qty := decimal.NewFromInt(3)
	got := TransactionPatch{Ticker: &ticker, Quantity: &qty}.Apply(tx)

	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, "MSFT", got.Ticker)
	assert.True(t, got.Quantity.Equal(qty))
	assert.Equal(t, tx.Date, got.Date)
	assert.Equal(t, "AAPL", tx.Ticker, "original must not change")

	replacement := tx
	replacement.ID = "ignored"
	replacement.Ticker = "NVDA"
	full := FullPatch(replacement).Apply(tx)
	assert.Equal(t, "abc", full.ID)
	assert.Equal(t, "NVDA", full.Ticker)
}

func TestTransaction_SignedQuantity(t *testing.T) {
	tx := Transaction{Quantity: decimal.NewFromInt(4), Operation: OpSell}
	assert.True(t, tx.SignedQuantity().Equal(decimal.NewFromInt(-4)))
	tx.Operation = OpBuy
	assert.True(t, tx.SignedQuantity().Equal(decimal.NewFromInt(4)))
}

func TestErrors_Matching(t *testing.T) {
	var err error = &ValidationError{Field: "ticker", Reason: "must not be empty"}
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "invalid ticker: must not be empty", err.Error())

	wrapped := fmt.Errorf("save: %w", &StoreError{Op: "update", UserID: "u1", ID: "t1", Err: ErrNotFound})
	var se *StoreError
	require.True(t, errors.As(wrapped, &se))
	assert.Equal(t, "t1", se.ID)
	assert.True(t, errors.Is(wrapped, ErrNotFound))

	ie := &ImportError{Missing: []string{"Plataforma"}}
	assert.True(t, errors.Is(ie, ErrMissingColumns))
	assert.Contains(t, ie.Error(), "Plataforma")
}

func TestTotals_Add(t *testing.T) {
	a := Totals{CostBasis: decimal.NewFromInt(10), MarketValue: decimal.NewFromInt(12), GainLoss: decimal.NewFromInt(2), Rows: 1}
	b := Totals{CostBasis: decimal.NewFromInt(5), Rows: 1, Pending: 1}
	sum := a.Add(b)
	assert.True(t, sum.CostBasis.Equal(decimal.NewFromInt(15)))
	assert.True(t, sum.MarketValue.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, 2, sum.Rows)
	assert.Equal(t, 1, sum.Pending)
	assert.True(t, sum.Equal(b.Add(a)))
}
