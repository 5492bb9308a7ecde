// Package csvcodec reads and writes the portfolio ledger CSV layout.
package csvcodec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/luisfhm/finanzas/internal/models"
	"github.com/luisfhm/finanzas/internal/services/ledger"
)

// Column headers of the ledger file.
const (
	ColDate         = "Fecha"
	ColAssetClass   = "Tipo"
	ColTicker       = "Activo"
	ColQuantity     = "Cantidad"
	ColUnitPrice    = "Precio"
	ColVenue        = "Plataforma"
	ColSector       = "Sector"
	ColFeePercent   = "Comisión (%)"
	ColManualPrice  = "Precio Manual"
	ColCurrentPrice = "Precio Actual"
	ColMarketValue  = "Valor Actual"
	ColCostBasis    = "Valor Compra"
	ColGainLoss     = "Ganancia/Pérdida"
	ColID           = "id"
	ColOperation    = "Operación"
)

// Columns is the export column order.
var Columns = []string{
	ColDate, ColAssetClass, ColTicker, ColQuantity, ColUnitPrice, ColVenue,
	ColSector, ColFeePercent, ColManualPrice, ColCurrentPrice, ColMarketValue,
	ColCostBasis, ColGainLoss, ColID, ColOperation,
}

// RequiredColumns must all be present for an import to be accepted.
var RequiredColumns = []string{ColDate, ColAssetClass, ColTicker, ColQuantity, ColUnitPrice, ColVenue}

const bom = "\uFEFF"

// headerKey folds a header for matching: case, spaces and accents are
// ignored, so "Comision (%)" finds the "Comisión (%)" column.
func headerKey(h string) string {
	h = strings.TrimPrefix(h, bom)
	if folded, _, err := transform.String(accentFolder(), h); err == nil {
		h = folded
	}
	h = strings.ReplaceAll(h, " ", "")
	return strings.ToLower(strings.TrimSpace(h))
}

func accentFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Decode reads ledger rows without validating them. Derived columns are
// ignored. A header missing any required column rejects the whole file.
func Decode(r io.Reader) ([]models.RawEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &models.ImportError{Missing: append([]string(nil), RequiredColumns...)}
	}
	if err != nil {
		return nil, &models.ImportError{Err: fmt.Errorf("read header: %w", err)}
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		key := headerKey(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[headerKey(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &models.ImportError{Missing: missing}
	}

	var rows []models.RawEntry
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &models.ImportError{Row: line, Err: err}
		}
		if blank(record) {
			continue
		}

		field := func(col string) string {
			i, ok := index[headerKey(col)]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		rows = append(rows, models.RawEntry{
			ID:          field(ColID),
			Date:        field(ColDate),
			AssetClass:  field(ColAssetClass),
			Ticker:      field(ColTicker),
			Quantity:    field(ColQuantity),
			UnitPrice:   field(ColUnitPrice),
			Operation:   field(ColOperation),
			Venue:       field(ColVenue),
			Sector:      field(ColSector),
			FeePercent:  field(ColFeePercent),
			ManualPrice: field(ColManualPrice),
		})
	}
	return rows, nil
}

// DecodeTransactions decodes and validates every row.
func DecodeTransactions(r io.Reader) ([]models.Transaction, error) {
	raws, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return ledger.NormalizeAll(raws)
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Encode writes txs in Columns order. Derived columns are filled from valued
// when it holds a row for the transaction id and left empty otherwise.
func Encode(w io.Writer, txs []models.Transaction, valued map[string]models.ValuedTransaction) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, tx := range txs {
		record := []string{
			tx.Date.Format(ledger.DateLayout),
			tx.AssetClass.Label(),
			tx.Ticker,
			tx.Quantity.String(),
			tx.UnitPrice.String(),
			tx.Venue,
			tx.Sector,
			tx.FeePercent.String(),
			nullString(tx.ManualPrice),
			"", "", "", "",
			tx.ID,
			tx.Operation.Label(),
		}
		if v, ok := valued[tx.ID]; ok {
			record[9] = nullString(v.CurrentPrice)
			record[10] = nullString(v.MarketValue)
			record[11] = v.CostBasis.String()
			record[12] = nullString(v.GainLoss)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", tx.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
