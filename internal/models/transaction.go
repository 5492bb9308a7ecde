package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSector is applied when a transaction carries no sector.
const DefaultSector = "Unknown"

// RawEntry is a transaction as captured from a form or CSV row, before validation.
type RawEntry struct {
	ID          string
	Date        string
	AssetClass  string
	Ticker      string
	Quantity    string
	UnitPrice   string
	Operation   string
	Venue       string
	Sector      string
	FeePercent  string
	ManualPrice string
}

// Transaction is a validated ledger row. It is replaced wholesale on edit.
type Transaction struct {
	ID          string              `json:"id"`
	Date        time.Time           `json:"date"`
	AssetClass  AssetClass          `json:"asset_class"`
	Ticker      string              `json:"ticker"`
	Quantity    decimal.Decimal     `json:"quantity"`
	UnitPrice   decimal.Decimal     `json:"unit_price"`
	Operation   Operation           `json:"operation"`
	Venue       string              `json:"venue,omitempty"`
	Sector      string              `json:"sector"`
	FeePercent  decimal.Decimal     `json:"fee_percent"`
	ManualPrice decimal.NullDecimal `json:"manual_price"`
}

// Sign returns -1 for sells and 1 otherwise.
func (t Transaction) Sign() decimal.Decimal {
	if t.Operation == OpSell {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// SignedQuantity is the quantity contribution to a running position.
func (t Transaction) SignedQuantity() decimal.Decimal {
	return t.Quantity.Mul(t.Sign())
}

// HasManualPrice reports whether a positive manual price is stored.
func (t Transaction) HasManualPrice() bool {
	return t.ManualPrice.Valid && t.ManualPrice.Decimal.IsPositive()
}

// TransactionPatch carries the fields to replace on update. Nil fields are left as stored.
type TransactionPatch struct {
	Date        *time.Time
	AssetClass  *AssetClass
	Ticker      *string
	Quantity    *decimal.Decimal
	UnitPrice   *decimal.Decimal
	Operation   *Operation
	Venue       *string
	Sector      *string
	FeePercent  *decimal.Decimal
	ManualPrice *decimal.NullDecimal
}

// FullPatch builds a patch replacing every field of the stored record with tx.
func FullPatch(tx Transaction) TransactionPatch {
	return TransactionPatch{
		Date:        &tx.Date,
		AssetClass:  &tx.AssetClass,
		Ticker:      &tx.Ticker,
		Quantity:    &tx.Quantity,
		UnitPrice:   &tx.UnitPrice,
		Operation:   &tx.Operation,
		Venue:       &tx.Venue,
		Sector:      &tx.Sector,
		FeePercent:  &tx.FeePercent,
		ManualPrice: &tx.ManualPrice,
	}
}

// Apply returns a copy of tx with the patch's non-nil fields replaced. The ID never changes.
func (p TransactionPatch) Apply(tx Transaction) Transaction {
	if p.Date != nil {
		tx.Date = *p.Date
	}
	if p.AssetClass != nil {
		tx.AssetClass = *p.AssetClass
	}
	if p.Ticker != nil {
		tx.Ticker = *p.Ticker
	}
	if p.Quantity != nil {
		tx.Quantity = *p.Quantity
	}
	if p.UnitPrice != nil {
		tx.UnitPrice = *p.UnitPrice
	}
	if p.Operation != nil {
		tx.Operation = *p.Operation
	}
	if p.Venue != nil {
		tx.Venue = *p.Venue
	}
	if p.Sector != nil {
		tx.Sector = *p.Sector
	}
	if p.FeePercent != nil {
		tx.FeePercent = *p.FeePercent
	}
	if p.ManualPrice != nil {
		tx.ManualPrice = *p.ManualPrice
	}
	return tx
}
