package history

import (
	"github.com/shopspring/decimal"

	"github.com/luisfhm/finanzas/internal/models"
	"github.com/luisfhm/finanzas/internal/services/ledger"
)

// HoldingsFromTransactions turns each transaction into a signed holding
// starting on its date.
func HoldingsFromTransactions(txs []models.Transaction) []models.Holding {
	holdings := make([]models.Holding, 0, len(txs))
	for _, tx := range txs {
		holdings = append(holdings, models.Holding{
			Ticker:     ledger.NormalizeTicker(tx.Ticker),
			AssetClass: tx.AssetClass,
			Quantity:   tx.SignedQuantity(),
			Since:      tx.Date,
		})
	}
	return holdings
}

// HoldingsFromRaw builds holdings from unvalidated rows. Rows without a
// ticker or with an unknown class are dropped; an unparsable quantity
// counts as zero and an unparsable date as held for the whole window.
func HoldingsFromRaw(raws []models.RawEntry) []models.Holding {
	holdings := make([]models.Holding, 0, len(raws))
	for _, raw := range raws {
		ticker := ledger.NormalizeTicker(raw.Ticker)
		if ticker == "" {
			continue
		}
		class, err := models.ParseAssetClass(raw.AssetClass)
		if err != nil {
			continue
		}

		qty, _, err := ledger.ParseAmount(raw.Quantity)
		if err != nil {
			qty = decimal.Zero
		}
		if op, err := models.ParseOperation(raw.Operation); err == nil && op == models.OpSell {
			qty = qty.Neg()
		}

		since, _ := ledger.ParseDate(raw.Date)
		holdings = append(holdings, models.Holding{
			Ticker:     ticker,
			AssetClass: class,
			Quantity:   qty,
			Since:      since,
		})
	}
	return holdings
}
