// Package ledger validates and canonicalizes raw transaction entries.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luisfhm/finanzas/internal/models"
)

// DateLayout is the canonical ledger date format.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
}

var hundred = decimal.NewFromInt(100)

// Normalize validates raw and returns the canonical transaction. The first
// offending field is reported as a *models.ValidationError.
func Normalize(raw models.RawEntry) (models.Transaction, error) {
	tx := models.Transaction{
		ID:     strings.TrimSpace(raw.ID),
		Venue:  strings.TrimSpace(raw.Venue),
		Sector: strings.TrimSpace(raw.Sector),
	}

	date, err := ParseDate(raw.Date)
	if err != nil {
		return models.Transaction{}, &models.ValidationError{Field: "date", Value: raw.Date, Reason: err.Error()}
	}
	tx.Date = date

	class, err := models.ParseAssetClass(raw.AssetClass)
	if err != nil {
		return models.Transaction{}, &models.ValidationError{Field: "asset_class", Value: raw.AssetClass, Reason: "not a known asset class"}
	}
	tx.AssetClass = class

	tx.Ticker = NormalizeTicker(raw.Ticker)
	if tx.Ticker == "" {
		return models.Transaction{}, &models.ValidationError{Field: "ticker", Reason: "must not be empty"}
	}

	if tx.Quantity, err = requiredAmount("quantity", raw.Quantity); err != nil {
		return models.Transaction{}, err
	}
	if tx.UnitPrice, err = requiredAmount("unit_price", raw.UnitPrice); err != nil {
		return models.Transaction{}, err
	}

	op, err := models.ParseOperation(raw.Operation)
	if err != nil {
		return models.Transaction{}, &models.ValidationError{Field: "operation", Value: raw.Operation, Reason: "must be Compra or Venta"}
	}
	tx.Operation = op

	if tx.Sector == "" {
		tx.Sector = models.DefaultSector
	}

	fee, present, err := ParseAmount(strings.TrimSuffix(strings.TrimSpace(raw.FeePercent), "%"))
	if err != nil {
		return models.Transaction{}, &models.ValidationError{Field: "fee_percent", Value: raw.FeePercent, Reason: "not a number"}
	}
	if present && (fee.IsNegative() || fee.GreaterThan(hundred)) {
		return models.Transaction{}, &models.ValidationError{Field: "fee_percent", Value: raw.FeePercent, Reason: "must be between 0 and 100"}
	}
	tx.FeePercent = fee

	manual, present, err := ParseAmount(raw.ManualPrice)
	if err != nil {
		return models.Transaction{}, &models.ValidationError{Field: "manual_price", Value: raw.ManualPrice, Reason: "not a number"}
	}
	if present && manual.IsNegative() {
		return models.Transaction{}, &models.ValidationError{Field: "manual_price", Value: raw.ManualPrice, Reason: "must not be negative"}
	}
	// a stored zero means no override
	if present && manual.IsPositive() {
		tx.ManualPrice = decimal.NewNullDecimal(manual)
	}

	return tx, nil
}

// NormalizeAll normalizes every entry, stopping at the first failure. The
// returned error wraps the *models.ValidationError with the 1-based row.
func NormalizeAll(raws []models.RawEntry) ([]models.Transaction, error) {
	txs := make([]models.Transaction, 0, len(raws))
	for i, raw := range raws {
		tx, err := Normalize(raw)
		if err != nil {
			return nil, &models.ImportError{Row: i + 1, Err: err}
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// ToRaw renders tx back into entry form; Normalize(ToRaw(tx)) returns tx.
func ToRaw(tx models.Transaction) models.RawEntry {
	raw := models.RawEntry{
		ID:         tx.ID,
		Date:       tx.Date.Format(DateLayout),
		AssetClass: tx.AssetClass.Label(),
		Ticker:     tx.Ticker,
		Quantity:   tx.Quantity.String(),
		UnitPrice:  tx.UnitPrice.String(),
		Operation:  tx.Operation.Label(),
		Venue:      tx.Venue,
		Sector:     tx.Sector,
		FeePercent: tx.FeePercent.String(),
	}
	if tx.ManualPrice.Valid {
		raw.ManualPrice = tx.ManualPrice.Decimal.String()
	}
	return raw
}

// SignedValue is quantity x unit price, negated for sells.
func SignedValue(tx models.Transaction) decimal.Decimal {
	return tx.Quantity.Mul(tx.UnitPrice).Mul(tx.Sign())
}

// NormalizeTicker trims and upper-cases a ticker.
func NormalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ParseDate parses a ledger date and truncates it to the UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("must not be empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("not a calendar date")
}

// ParseAmount parses a decimal, tolerating a currency sign and thousands
// separators. Blank input reports present=false.
func ParseAmount(s string) (d decimal.Decimal, present bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false, nil
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	d, err = decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, true, err
	}
	return d, true, nil
}

func requiredAmount(field, s string) (decimal.Decimal, error) {
	d, present, err := ParseAmount(s)
	if !present {
		return decimal.Zero, &models.ValidationError{Field: field, Reason: "is required"}
	}
	if err != nil {
		return decimal.Zero, &models.ValidationError{Field: field, Value: s, Reason: "not a number"}
	}
	if d.IsNegative() {
		return decimal.Zero, &models.ValidationError{Field: field, Value: s, Reason: "must not be negative"}
	}
	return d, nil
}
