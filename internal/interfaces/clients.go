// Package interfaces defines the contracts between finanzas packages
package interfaces

import (
	"context"
	"time"

	"github.com/luisfhm/finanzas/internal/models"
)

// EquityQuoteClient returns current quotes for exchange-listed instruments.
type EquityQuoteClient interface {
	// GetQuote returns the latest price and its native currency.
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// CryptoQuoteClient returns spot prices for crypto assets in USD.
type CryptoQuoteClient interface {
	GetUSDPrice(ctx context.Context, ticker string) (float64, error)
}

// FXClient returns spot exchange rates.
type FXClient interface {
	// GetRate returns how many units of to one unit of from buys.
	GetRate(ctx context.Context, from, to string) (float64, error)
}

// HistoryClient returns daily closes over a date range, with the currency
// they are quoted in.
type HistoryClient interface {
	GetDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, string, error)
}

// ProfileClient looks up descriptive data for an equity.
type ProfileClient interface {
	GetSector(ctx context.Context, symbol string) (string, error)
}
