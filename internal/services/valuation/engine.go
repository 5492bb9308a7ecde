// Package valuation joins ledger rows with resolved prices and aggregates
// them into positions.
package valuation

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luisfhm/finanzas/internal/models"
	"github.com/luisfhm/finanzas/internal/services/ledger"
)

var hundred = decimal.NewFromInt(100)

// ManualPrices returns the authoritative manual price per ticker: the last
// transaction in ledger order carrying a positive manual price wins.
func ManualPrices(txs []models.Transaction) map[string]decimal.Decimal {
	manual := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.HasManualPrice() {
			manual[ledger.NormalizeTicker(tx.Ticker)] = tx.ManualPrice.Decimal
		}
	}
	return manual
}

// Valuate prices every transaction. Precedence per ticker is a live price
// from prices, then the ticker's manual price, then NeedsManualPrice.
// Resolving is read-only; prices is not modified.
func Valuate(txs []models.Transaction, prices map[string]models.PricePoint) []models.ValuedTransaction {
	manual := ManualPrices(txs)

	rows := make([]models.ValuedTransaction, 0, len(txs))
	for _, tx := range txs {
		ticker := ledger.NormalizeTicker(tx.Ticker)

		var current decimal.NullDecimal
		source := models.SourceUnavailable
		if p, ok := prices[ticker]; ok && p.Available() {
			current = decimal.NewNullDecimal(p.Price)
			source = models.SourceLive
			if p.Source == models.SourceManual {
				source = models.SourceManual
			}
		} else if m, ok := manual[ticker]; ok {
			current = decimal.NewNullDecimal(m)
			source = models.SourceManual
		}

		rows = append(rows, valueRow(tx, current, source))
	}
	return rows
}

func valueRow(tx models.Transaction, current decimal.NullDecimal, source models.PriceSource) models.ValuedTransaction {
	qty := tx.SignedQuantity()
	costBasis := qty.Mul(tx.UnitPrice)

	row := models.ValuedTransaction{
		Transaction:  tx,
		CurrentPrice: current,
		Source:       source,
		Status:       models.StatusNeedsManualPrice,
		CostBasis:    costBasis,
		NetValue:     ledger.SignedValue(tx),
		Fees:         tx.Quantity.Mul(tx.UnitPrice).Mul(tx.FeePercent).Div(hundred),
	}
	if row.Sector == "" {
		row.Sector = models.DefaultSector
	}
	if !current.Valid {
		return row
	}

	marketValue := qty.Mul(current.Decimal)
	row.Status = models.StatusResolved
	row.MarketValue = decimal.NewNullDecimal(marketValue)
	row.GainLoss = decimal.NewNullDecimal(marketValue.Sub(costBasis))
	return row
}

// PendingTickers returns the sorted distinct tickers of rows awaiting a manual price.
func PendingTickers(rows []models.ValuedTransaction) []string {
	seen := make(map[string]bool)
	var pending []string
	for _, r := range rows {
		if r.Resolved() || seen[r.Ticker] {
			continue
		}
		seen[r.Ticker] = true
		pending = append(pending, r.Ticker)
	}
	sort.Strings(pending)
	return pending
}

// ApplyManualPrices returns a copy of txs with each given ticker's manual
// price set on every transaction sharing it, plus the ids of the changed
// records. Prices must be positive and tickers must exist in txs; txs is
// not modified.
func ApplyManualPrices(txs []models.Transaction, prices map[string]decimal.Decimal) ([]models.Transaction, []string, error) {
	normalized := make(map[string]decimal.Decimal, len(prices))
	present := make(map[string]bool, len(txs))
	for _, tx := range txs {
		present[ledger.NormalizeTicker(tx.Ticker)] = true
	}

	keys := make([]string, 0, len(prices))
	for k := range prices {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		p := prices[k]
		ticker := ledger.NormalizeTicker(k)
		if !p.IsPositive() {
			return nil, nil, &models.ValidationError{Field: "manual_price", Value: ticker, Reason: "must be greater than zero"}
		}
		if !present[ticker] {
			return nil, nil, &models.ValidationError{Field: "ticker", Value: ticker, Reason: "not in ledger"}
		}
		normalized[ticker] = p
	}

	out := make([]models.Transaction, len(txs))
	var changed []string
	for i, tx := range txs {
		out[i] = tx
		p, ok := normalized[ledger.NormalizeTicker(tx.Ticker)]
		if !ok {
			continue
		}
		out[i].ManualPrice = decimal.NewNullDecimal(p)
		changed = append(changed, tx.ID)
	}
	return out, changed, nil
}

// Value runs Valuate and Aggregate and assembles the pass result.
func Value(userID, baseCurrency string, txs []models.Transaction, prices map[string]models.PricePoint, asOf time.Time) *models.Valuation {
	rows := Valuate(txs, prices)
	positions, total := Aggregate(rows)
	return &models.Valuation{
		UserID:       userID,
		BaseCurrency: strings.ToUpper(baseCurrency),
		AsOf:         asOf,
		Rows:         rows,
		Positions:    positions,
		Total:        total,
		Pending:      PendingTickers(rows),
	}
}
