/*
Package xlsx is the tabular I/O boundary of the engine.

PURPOSE:
  The engine itself works on in-memory records; this package maps those to
  and from the spreadsheet files the business exchanges:

    consolidated sales workbook  -> []engine.SalesRecord   (ReadSales)
    stock allocation table       <-> []engine.StockGroup   (WriteStock/ReadStock)
    generated invoices workbook  <-  *engine.Plan          (WriteInvoices)

COLUMN CONTRACTS:
  Header names are normalized (trimmed, lowercased) before matching, so
  "Valor Unitario " and "valor unitario" are the same column. The sales
  sheet accepts either "cantidad" or "huevos_disponibles" for quantity.

ERRORS:
  Missing required columns surface as *engine.ValidationError so callers
  treat file-shape problems exactly like record-shape problems.
*/
package xlsx

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/invoice-engine/engine"
)

// Required sales columns. Quantity accepts either alias.
const (
	colType     = "tipo"
	colPrice    = "valor unitario"
	colQty      = "cantidad"
	colQtyAlias = "huevos_disponibles"
	colVendor   = "nit_proveedor"
)

// ReadSales loads the consolidated sales workbook (first sheet) into
// sales records.
func ReadSales(path string) ([]engine.SalesRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open sales workbook: %w", err)
	}
	defer f.Close()

	rows, err := firstSheetRows(f)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, &engine.ValidationError{Record: -1, Reason: "sales workbook has no data rows"}
	}

	cols := headerIndex(rows[0])
	typeIdx, ok := cols[colType]
	if !ok {
		return nil, &engine.ValidationError{Field: colType, Record: -1, Reason: "missing column"}
	}
	priceIdx, ok := cols[colPrice]
	if !ok {
		return nil, &engine.ValidationError{Field: colPrice, Record: -1, Reason: "missing column"}
	}
	qtyIdx, ok := cols[colQty]
	if !ok {
		if qtyIdx, ok = cols[colQtyAlias]; !ok {
			return nil, &engine.ValidationError{Field: colQty, Record: -1, Reason: "missing column"}
		}
	}
	vendorIdx, ok := cols[colVendor]
	if !ok {
		return nil, &engine.ValidationError{Field: colVendor, Record: -1, Reason: "missing column"}
	}

	var records []engine.SalesRecord
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		price, err := parsePrice(cell(row, priceIdx))
		if err != nil {
			return nil, &engine.ValidationError{Field: colPrice, Record: i, Reason: err.Error()}
		}
		qty, err := parseQty(cell(row, qtyIdx))
		if err != nil {
			return nil, &engine.ValidationError{Field: colQty, Record: i, Reason: err.Error()}
		}
		records = append(records, engine.SalesRecord{
			Type:      strings.TrimSpace(cell(row, typeIdx)),
			UnitPrice: price,
			Quantity:  qty,
			VendorID:  strings.TrimSpace(cell(row, vendorIdx)),
		})
	}
	return records, nil
}

// ReadStock loads an intermediate stock table written by WriteStock.
func ReadStock(path string) ([]engine.StockGroup, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open stock workbook: %w", err)
	}
	defer f.Close()

	rows, err := firstSheetRows(f)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, &engine.ValidationError{Record: -1, Reason: "stock workbook has no data rows"}
	}

	cols := headerIndex(rows[0])
	for _, required := range []string{"id", colType, colPrice, colQtyAlias, "huevos_a_vender", "_fecha_dt"} {
		if _, ok := cols[required]; !ok {
			return nil, &engine.ValidationError{Field: required, Record: -1, Reason: "missing column"}
		}
	}

	var groups []engine.StockGroup
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		id, err := parseQty(cell(row, cols["id"]))
		if err != nil {
			return nil, &engine.ValidationError{Field: "id", Record: i, Reason: err.Error()}
		}
		price, err := parsePrice(cell(row, cols[colPrice]))
		if err != nil {
			return nil, &engine.ValidationError{Field: colPrice, Record: i, Reason: err.Error()}
		}
		available, err := parseQty(cell(row, cols[colQtyAlias]))
		if err != nil {
			return nil, &engine.ValidationError{Field: colQtyAlias, Record: i, Reason: err.Error()}
		}
		allocated, err := parseQty(cell(row, cols["huevos_a_vender"]))
		if err != nil {
			return nil, &engine.ValidationError{Field: "huevos_a_vender", Record: i, Reason: err.Error()}
		}
		ref, err := time.Parse("2006-01-02", strings.TrimSpace(cell(row, cols["_fecha_dt"])))
		if err != nil {
			return nil, &engine.ValidationError{Field: "_fecha_dt", Record: i, Reason: err.Error()}
		}
		groups = append(groups, engine.StockGroup{
			ID:            engine.GroupID(id),
			Type:          strings.TrimSpace(cell(row, cols[colType])),
			UnitPrice:     price,
			Available:     available,
			Allocated:     allocated,
			ReferenceDate: ref,
		})
	}
	return groups, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func firstSheetRows(f *excelize.File) ([][]string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &engine.ValidationError{Record: -1, Reason: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// headerIndex maps normalized column names to their index.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty price")
	}
	return decimal.NewFromString(s)
}

// parseQty accepts integer cells however the writing tool rendered them
// ("1000", "1000.0").
func parseQty(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
