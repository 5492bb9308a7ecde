// Package models defines the ledger, pricing and valuation types for finanzas
package models

import (
	"fmt"
	"strings"
)

// AssetClass is the category of a holding; it selects the pricing path.
type AssetClass string

const (
	AssetEquity      AssetClass = "equity"
	AssetCrypto      AssetClass = "crypto"
	AssetFixedIncome AssetClass = "fixed_income"
	AssetRealEstate  AssetClass = "real_estate"
	AssetOther       AssetClass = "other"
)

// AssetClasses lists every class in display order.
var AssetClasses = []AssetClass{AssetEquity, AssetCrypto, AssetFixedIncome, AssetRealEstate, AssetOther}

var assetLabels = map[AssetClass]string{
	AssetEquity:      "Acción/ETF",
	AssetCrypto:      "Cripto",
	AssetFixedIncome: "CETES",
	AssetRealEstate:  "Inmueble",
	AssetOther:       "Otro",
}

// legacy and alternate spellings seen in older ledgers
var assetAliases = map[string]AssetClass{
	"accion/etf": AssetEquity,
	"acción/etf": AssetEquity,
	"accion":     AssetEquity,
	"acción":     AssetEquity,
	"etf":        AssetEquity,
	"bolsa":      AssetEquity,
	"cripto":     AssetCrypto,
	"crypto":     AssetCrypto,
	"cetes":      AssetFixedIncome,
	"inmueble":   AssetRealEstate,
	"otro":       AssetOther,
	"otros":      AssetOther,
}

// Label returns the ledger column label for the class.
func (a AssetClass) Label() string {
	if l, ok := assetLabels[a]; ok {
		return l
	}
	return string(a)
}

// Valid reports whether a is one of the enumerated classes.
func (a AssetClass) Valid() bool {
	_, ok := assetLabels[a]
	return ok
}

// HasLivePrice reports whether a live quote and price history exist for the class.
func (a AssetClass) HasLivePrice() bool {
	return a == AssetEquity || a == AssetCrypto
}

// ParseAssetClass accepts either the class key or its ledger label, case-insensitively.
func ParseAssetClass(s string) (AssetClass, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, a := range AssetClasses {
		if key == string(a) {
			return a, nil
		}
	}
	if a, ok := assetAliases[key]; ok {
		return a, nil
	}
	return "", fmt.Errorf("unknown asset class %q", s)
}

// Operation is the direction of a transaction.
type Operation string

const (
	OpBuy  Operation = "buy"
	OpSell Operation = "sell"
)

// Label returns the ledger column label for the operation.
func (o Operation) Label() string {
	if o == OpSell {
		return "Venta"
	}
	return "Compra"
}

// ParseOperation accepts "Compra"/"Venta" or "buy"/"sell"; empty means buy.
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "compra", "buy":
		return OpBuy, nil
	case "venta", "sell":
		return OpSell, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}
