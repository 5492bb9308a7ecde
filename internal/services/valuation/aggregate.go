package valuation

import (
	"sort"

	"github.com/luisfhm/finanzas/internal/models"
)

var classOrder = func() map[models.AssetClass]int {
	m := make(map[models.AssetClass]int, len(models.AssetClasses))
	for i, a := range models.AssetClasses {
		m[a] = i
	}
	return m
}()

// RowTotals is the contribution of one valued row to any aggregate.
func RowTotals(r models.ValuedTransaction) models.Totals {
	t := models.Totals{
		Quantity:  r.SignedQuantity(),
		CostBasis: r.CostBasis,
		NetValue:  r.NetValue,
		Fees:      r.Fees,
		Rows:      1,
	}
	if r.Resolved() {
		t.MarketValue = r.MarketValue.Decimal
		t.GainLoss = r.GainLoss.Decimal
	} else {
		t.Pending = 1
	}
	return t
}

// Sum adds the totals of rows.
func Sum(rows []models.ValuedTransaction) models.Totals {
	var total models.Totals
	for _, r := range rows {
		total = total.Add(RowTotals(r))
	}
	return total
}

// Aggregate groups rows by (asset class, sector, ticker) and returns the
// positions in a stable order plus the grand total over all rows.
func Aggregate(rows []models.ValuedTransaction) ([]models.Position, models.Totals) {
	groups := make(map[models.PositionKey]*models.Position)
	var total models.Totals

	for _, r := range rows {
		sector := r.Sector
		if sector == "" {
			sector = models.DefaultSector
		}
		key := models.PositionKey{AssetClass: r.AssetClass, Sector: sector, Ticker: r.Ticker}

		rt := RowTotals(r)
		total = total.Add(rt)

		pos, ok := groups[key]
		if !ok {
			pos = &models.Position{Key: key}
			groups[key] = pos
		}
		pos.Totals = pos.Totals.Add(rt)
	}

	positions := make([]models.Position, 0, len(groups))
	for _, pos := range groups {
		pos.Status = models.StatusResolved
		if pos.Totals.Pending > 0 {
			pos.Status = models.StatusNeedsManualPrice
		}
		positions = append(positions, *pos)
	}

	sort.Slice(positions, func(i, j int) bool {
		a, b := positions[i].Key, positions[j].Key
		if a.AssetClass != b.AssetClass {
			return classRank(a.AssetClass) < classRank(b.AssetClass)
		}
		if a.Sector != b.Sector {
			return a.Sector < b.Sector
		}
		return a.Ticker < b.Ticker
	})

	return positions, total
}

func classRank(a models.AssetClass) int {
	if r, ok := classOrder[a]; ok {
		return r
	}
	return len(classOrder)
}
