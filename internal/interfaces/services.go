package interfaces

import (
	"context"
	"io"

	"github.com/shopspring/decimal"

	"github.com/luisfhm/finanzas/internal/models"
)

// PriceResolver resolves current unit prices in the base currency.
type PriceResolver interface {
	ResolvePrice(ctx context.Context, class models.AssetClass, ticker string) models.PricePoint
	ResolvePricesUnique(ctx context.Context, txs []models.Transaction) map[string]models.PricePoint
	ToBase(ctx context.Context, amount decimal.Decimal, currency string) decimal.Decimal
	InvalidateFX()
}

// Simulator replays daily closes against holdings.
type Simulator interface {
	Simulate(ctx context.Context, holdings []models.Holding, lookbackDays int, classes []models.AssetClass) (*models.TimeSeries, error)
}

// PortfolioService orchestrates ledger edits, valuation and simulation for a user.
type PortfolioService interface {
	List(ctx context.Context, userID string) ([]models.Transaction, error)
	AddEntry(ctx context.Context, userID string, raw models.RawEntry) (*models.Transaction, error)
	EditEntry(ctx context.Context, userID, id string, raw models.RawEntry) (*models.Transaction, error)
	DeleteEntry(ctx context.Context, userID, id string) error

	// Value runs one valuation pass. Rows without a price are tagged
	// rather than blocking.
	Value(ctx context.Context, userID string) (*models.Valuation, error)

	// SetManualPrices persists per-ticker manual prices on every record sharing the ticker.
	SetManualPrices(ctx context.Context, userID string, prices map[string]decimal.Decimal) ([]string, error)

	Import(ctx context.Context, userID string, r io.Reader) (int, error)
	Export(ctx context.Context, userID string, w io.Writer, valued bool) error
	Simulate(ctx context.Context, userID string, lookbackDays int, classes []models.AssetClass) (*models.TimeSeries, error)
}
