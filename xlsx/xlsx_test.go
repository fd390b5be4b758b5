package xlsx_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/invoice-engine/engine"
	"github.com/warp/invoice-engine/xlsx"
)

func writeSalesFixture(t *testing.T, path string, header []string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, f.SetCellValue(sheet, cell, h))
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestReadSales_NormalizesHeadersAndParsesRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	writeSalesFixture(t, path,
		[]string{" Tipo ", "Valor Unitario", "Cantidad", "NIT_Proveedor"},
		[][]interface{}{
			{"HUEVO AA", 500.5, 1200, "900111"},
			{"HUEVO B", 430, 900, "900222"},
		})

	records, err := xlsx.ReadSales(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "HUEVO AA", records[0].Type)
	require.True(t, records[0].UnitPrice.Equal(decimal.NewFromFloat(500.5)))
	require.Equal(t, 1200, records[0].Quantity)
	require.Equal(t, "900222", records[1].VendorID)
}

func TestReadSales_MissingColumnIsValidationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	writeSalesFixture(t, path,
		[]string{"tipo", "cantidad", "nit_proveedor"}, // no price column
		[][]interface{}{{"HUEVO AA", 1200, "900111"}})

	_, err := xlsx.ReadSales(path)
	require.Error(t, err)
	require.True(t, engine.IsValidation(err))
}

func TestStockTable_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock.xlsx")
	ref := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	in := []engine.StockGroup{
		{ID: 1, Type: "HUEVO AA", UnitPrice: decimal.NewFromInt(500), Available: 6000, Allocated: 5850, ReferenceDate: ref},
		{ID: 2, Type: "HUEVO B", UnitPrice: decimal.NewFromInt(430), Available: 3150, Allocated: 3150, ReferenceDate: ref},
	}

	require.NoError(t, xlsx.WriteStock(path, in))
	out, err := xlsx.ReadStock(path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		require.Equal(t, in[i].ID, out[i].ID)
		require.Equal(t, in[i].Type, out[i].Type)
		require.True(t, in[i].UnitPrice.Equal(out[i].UnitPrice))
		require.Equal(t, in[i].Available, out[i].Available)
		require.Equal(t, in[i].Allocated, out[i].Allocated)
		require.True(t, in[i].ReferenceDate.Equal(out[i].ReferenceDate))
	}
}

func TestWriteInvoices_SheetPerMonthPlusUnion(t *testing.T) {
	cfg := engine.DefaultConfig()
	planner := engine.NewPlanner(cfg, engine.NewExactLPAllocation())
	plan, err := planner.Run(context.Background(), []engine.SalesRecord{
		{Type: "HUEVO AA", UnitPrice: decimal.NewFromInt(500), Quantity: 3000, VendorID: "1"},
	}, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, xlsx.WriteInvoices(&buf, plan))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Contains(t, sheets, "March 2026")
	require.Contains(t, sheets, "all_facturas")

	rows, err := f.GetRows("all_facturas")
	require.NoError(t, err)
	require.Equal(t, len(plan.Invoices)+1, len(rows)) // header + invoices
	require.Equal(t, "Fecha", rows[0][0])
	require.Equal(t, "ID_Stock", rows[0][9])
}
