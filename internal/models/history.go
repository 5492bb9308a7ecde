package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a signed quantity of one instrument held from Since onwards.
type Holding struct {
	Ticker     string
	AssetClass AssetClass
	Quantity   decimal.Decimal
	Since      time.Time // zero means held for the whole window
}

// PriceBar is one daily close in the provider's currency.
type PriceBar struct {
	Date  time.Time
	Close float64
}

// TimeSeriesPoint is the total portfolio value on one date.
type TimeSeriesPoint struct {
	Date  time.Time       `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// SkippedTicker records a ticker left out of a simulation and why.
type SkippedTicker struct {
	Ticker     string     `json:"ticker"`
	AssetClass AssetClass `json:"asset_class"`
	Reason     string     `json:"reason"`
}

// TimeSeries is a date-ascending portfolio value series.
type TimeSeries struct {
	From     time.Time         `json:"from"`
	To       time.Time         `json:"to"`
	Currency string            `json:"currency"`
	Points   []TimeSeriesPoint `json:"points"`
	Skipped  []SkippedTicker   `json:"skipped,omitempty"`
}

// Empty reports whether no ticker produced any data.
func (ts *TimeSeries) Empty() bool {
	return len(ts.Points) == 0
}
