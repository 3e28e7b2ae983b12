package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"ordermail/internal"
)

func ExportPurchasesToXLSX(rows []internal.PurchaseExportRow, outputPath string) error {
	headers := []string{
		"Date", "Retailer", "Order Number", "Lead ID", "Product Name", "Unique ID",
		"Size", "ASIN", "Qty", "RSP", "FBA MSKU", "Status",
	}
	return writeSheet(outputPath, "Purchases", headers, len(rows), func(i int) []any {
		r := rows[i]
		return []any{r.PurchasedOn, r.Retailer, r.OrderNumber, r.LeadID, r.ProductName, r.UniqueID,
			r.Size, r.ASIN, r.Qty, r.RSP, r.FBAMSKU, r.Status}
	})
}

func ExportCheckinsToXLSX(rows []internal.CheckinExportRow, outputPath string) error {
	headers := []string{"Checked In", "Shipment", "Item Name", "ASIN", "Size", "Lead ID", "Quantity"}
	return writeSheet(outputPath, "Checkins", headers, len(rows), func(i int) []any {
		r := rows[i]
		return []any{r.CheckedInAt, r.OrderNumber, r.ItemName, r.ASIN, r.Size, r.LeadID, r.Quantity}
	})
}

func writeSheet(outputPath, name string, headers []string, n int, row func(i int) []any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, name); err != nil {
		return err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(name, cell, h)
	}
	for i := 0; i < n; i++ {
		for col, value := range row(i) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(name, cell, value)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
