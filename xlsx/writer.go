package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/warp/invoice-engine/engine"
)

// =============================================================================
// STOCK TABLE
// =============================================================================

var stockHeader = []string{"id", "tipo", "valor unitario", "huevos_disponibles", "huevos_a_vender", "_fecha_dt"}

// WriteStock dumps the optimizer's intermediate table - the contract
// between the allocation stage and the generator.
func WriteStock(path string, groups []engine.StockGroup) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	writeHeader(f, sheet, stockHeader)
	for i, g := range groups {
		row := i + 2
		setRow(f, sheet, row,
			int(g.ID),
			g.Type,
			g.UnitPrice.Round(2).InexactFloat64(),
			g.Available,
			g.Allocated,
			g.ReferenceDate.Format("2006-01-02"),
		)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save stock workbook: %w", err)
	}
	return nil
}

// =============================================================================
// INVOICE WORKBOOK
// =============================================================================

var invoiceHeader = []string{
	"Fecha", "N factura", "Tipo", "Precio base", "Huevos vendidos",
	"Cubetas vendidas", "Precio venta unidad", "Precio venta paquete",
	"Valor Total", "ID_Stock",
}

// WriteInvoices streams the invoice workbook: one sheet per month plus an
// all_facturas union sheet.
func WriteInvoices(w io.Writer, plan *engine.Plan) error {
	f, err := buildInvoiceWorkbook(plan)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write invoice workbook: %w", err)
	}
	return nil
}

// WriteInvoicesFile saves the invoice workbook to disk.
func WriteInvoicesFile(path string, plan *engine.Plan) error {
	f, err := buildInvoiceWorkbook(plan)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save invoice workbook: %w", err)
	}
	return nil
}

func buildInvoiceWorkbook(plan *engine.Plan) (*excelize.File, error) {
	f := excelize.NewFile()

	for _, month := range plan.Months {
		name := sheetName(month.Month.String())
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
		writeInvoiceSheet(f, name, month.Invoices)
	}

	all := "all_facturas"
	if _, err := f.NewSheet(all); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet %q: %w", all, err)
	}
	writeInvoiceSheet(f, all, plan.Invoices)

	// Drop excelize's default sheet; the month sheets carry the data.
	if err := f.DeleteSheet(f.GetSheetName(0)); err != nil {
		f.Close()
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}
	return f, nil
}

func writeInvoiceSheet(f *excelize.File, sheet string, invs []engine.SyntheticInvoice) {
	writeHeader(f, sheet, invoiceHeader)
	for i, inv := range invs {
		setRow(f, sheet, i+2,
			inv.Date.Format("02/01/2006"),
			inv.Number,
			inv.Type,
			inv.BasePrice.Round(2).InexactFloat64(),
			inv.Quantity,
			inv.Packs,
			inv.SaleUnitPrice.Round(2).InexactFloat64(),
			inv.SalePackPrice.Round(2).InexactFloat64(),
			inv.TotalValue.Round(2).InexactFloat64(),
			int(inv.Group),
		)
	}
}

// =============================================================================
// CELL HELPERS
// =============================================================================

func writeHeader(f *excelize.File, sheet string, header []string) {
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, v)
	}
}

// sheetName truncates to excel's 31-character sheet name limit.
func sheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
