package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource records where a current price came from.
type PriceSource string

const (
	SourceLive        PriceSource = "live"
	SourceManual      PriceSource = "manual"
	SourceUnavailable PriceSource = "unavailable"
)

// Quote is a provider's current price in the instrument's native currency.
type Quote struct {
	Symbol   string
	Price    float64
	Currency string
}

// PricePoint is one resolution result in the base currency. Unavailable
// points carry a zero price.
type PricePoint struct {
	Ticker     string          `json:"ticker"`
	AssetClass AssetClass      `json:"asset_class"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	Source     PriceSource     `json:"source"`
}

// Available reports whether the point holds a usable live price.
func (p PricePoint) Available() bool {
	return p.Source != SourceUnavailable && p.Price.IsPositive()
}

// ValuationStatus tags a valued row or position.
type ValuationStatus string

const (
	StatusResolved         ValuationStatus = "resolved"
	StatusNeedsManualPrice ValuationStatus = "needs_manual_price"
)

// ValuedTransaction joins a transaction with its resolved current price.
// CurrentPrice, MarketValue and GainLoss are invalid while the row awaits a
// manual price; CostBasis is always set. Quantity-derived amounts are signed.
type ValuedTransaction struct {
	Transaction
	CurrentPrice decimal.NullDecimal `json:"current_price"`
	Source       PriceSource         `json:"source"`
	Status       ValuationStatus     `json:"status"`
	CostBasis    decimal.Decimal     `json:"cost_basis"`
	MarketValue  decimal.NullDecimal `json:"market_value"`
	GainLoss     decimal.NullDecimal `json:"gain_loss"`
	NetValue     decimal.Decimal     `json:"net_value"` // signed quantity x unit price
	Fees         decimal.Decimal     `json:"fees"`
}

// Resolved reports whether the row has a current price.
func (v ValuedTransaction) Resolved() bool {
	return v.Status == StatusResolved
}

// PositionKey is the aggregation key.
type PositionKey struct {
	AssetClass AssetClass `json:"asset_class"`
	Sector     string     `json:"sector"`
	Ticker     string     `json:"ticker"`
}

// Totals are summed amounts over a set of valued rows. Market value and
// gain/loss only include resolved rows; Pending counts the rest.
type Totals struct {
	Quantity    decimal.Decimal `json:"quantity"`
	CostBasis   decimal.Decimal `json:"cost_basis"`
	MarketValue decimal.Decimal `json:"market_value"`
	GainLoss    decimal.Decimal `json:"gain_loss"`
	NetValue    decimal.Decimal `json:"net_value"`
	Fees        decimal.Decimal `json:"fees"`
	Rows        int             `json:"rows"`
	Pending     int             `json:"pending"`
}

// Add returns the sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Quantity:    t.Quantity.Add(o.Quantity),
		CostBasis:   t.CostBasis.Add(o.CostBasis),
		MarketValue: t.MarketValue.Add(o.MarketValue),
		GainLoss:    t.GainLoss.Add(o.GainLoss),
		NetValue:    t.NetValue.Add(o.NetValue),
		Fees:        t.Fees.Add(o.Fees),
		Rows:        t.Rows + o.Rows,
		Pending:     t.Pending + o.Pending,
	}
}

// Equal compares totals by value.
func (t Totals) Equal(o Totals) bool {
	return t.Quantity.Equal(o.Quantity) &&
		t.CostBasis.Equal(o.CostBasis) &&
		t.MarketValue.Equal(o.MarketValue) &&
		t.GainLoss.Equal(o.GainLoss) &&
		t.NetValue.Equal(o.NetValue) &&
		t.Fees.Equal(o.Fees) &&
		t.Rows == o.Rows &&
		t.Pending == o.Pending
}

// Position aggregates every row sharing a PositionKey. It is resolved only
// when all of its rows are.
type Position struct {
	Key    PositionKey     `json:"key"`
	Totals Totals          `json:"totals"`
	Status ValuationStatus `json:"status"`
}

// Valuation is the result of one valuation pass over a user's ledger.
type Valuation struct {
	UserID       string              `json:"user_id"`
	BaseCurrency string              `json:"base_currency"`
	AsOf         time.Time           `json:"as_of"`
	Rows         []ValuedTransaction `json:"rows"`
	Positions    []Position          `json:"positions"`
	Total        Totals              `json:"total"`
	Pending      []string            `json:"pending"` // tickers awaiting a manual price
}

// Complete reports whether every row has a current price.
func (v *Valuation) Complete() bool {
	return len(v.Pending) == 0
}

// MarketValue is invalid while any row of the position awaits a manual price.
func (p Position) MarketValue() decimal.NullDecimal {
	if p.Status != StatusResolved {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(p.Totals.MarketValue)
}

// GainLoss is invalid while any row of the position awaits a manual price.
func (p Position) GainLoss() decimal.NullDecimal {
	if p.Status != StatusResolved {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(p.Totals.GainLoss)
}
