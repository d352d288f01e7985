package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-analyzer/internal/core/aggregate"
	"github.com/joseph-ayodele/invoice-analyzer/internal/entity"
)

// XLSXSink writes the totals and every line item into one workbook.
type XLSXSink struct {
	dir    string
	name   string
	logger *slog.Logger
}

func NewXLSXSink(dir, name string, logger *slog.Logger) *XLSXSink {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		name = "summary.xlsx"
	}
	return &XLSXSink{dir: dir, name: name, logger: logger}
}

const (
	sheetMonthly    = "Monthly"
	sheetCategories = "Categories"
	sheetProviders  = "Providers"
	sheetItems      = "Items"
)

func (s *XLSXSink) Write(ctx context.Context, in Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := time.Now()

	buf, err := s.Workbook(in)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(s.dir, s.name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("report.xlsx.ok",
		"path", path,
		"invoices", len(in.Invoices),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return path, nil
}

// Workbook returns the XLSX bytes.
func (s *XLSXSink) Workbook(in Input) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("report.xlsx.close_failed", "error", err)
		}
	}()

	sum := in.Output.Summary
	if err := writeTotals(f, sheetMonthly, "Month", aggregate.Sorted(sum.MonthlyTotals)); err != nil {
		return nil, err
	}
	if err := writeTotals(f, sheetCategories, "Category", aggregate.Ranked(sum.CategoryTotals, 0)); err != nil {
		return nil, err
	}
	if err := writeTotals(f, sheetProviders, "Provider", aggregate.Ranked(sum.ProviderTotals, 0)); err != nil {
		return nil, err
	}
	if err := writeItems(f, in.Invoices); err != nil {
		return nil, err
	}

	// excelize starts with Sheet1; drop it once ours exist.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	if idx, err := f.GetSheetIndex(sheetMonthly); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTotals(f *excelize.File, sheet, keyHeader string, rows []entity.Amount) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
	write(1, 1, keyHeader)
	write(2, 1, "Total")
	for i, a := range rows {
		write(1, i+2, a.Key)
		write(2, i+2, a.Value.Round(2).InexactFloat64())
	}
	_ = f.SetColWidth(sheet, "A", "A", 28)
	_ = f.SetColWidth(sheet, "B", "B", 14)
	return nil
}

func writeItems(f *excelize.File, invoices []entity.Invoice) error {
	if _, err := f.NewSheet(sheetItems); err != nil {
		return err
	}
	headers := []string{
		"Invoice",
		"Provider",
		"Date",
		"Item",
		"Description",
		"Category",
		"Quantity",
		"Unit Price",
		"Discount",
		"Tax",
		"Line Price",
		"Item Price",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetItems, cell, h)
	}

	row := 2
	for _, inv := range invoices {
		date := ""
		if !inv.Date.IsZero() {
			date = inv.Date.Format("2006-01-02")
		}
		for _, it := range inv.Items {
			values := []any{
				inv.ID,
				inv.Provider,
				date,
				it.Number,
				it.Description,
				it.Category,
				it.Quantity.InexactFloat64(),
				it.UnitPrice.InexactFloat64(),
				it.Discount.InexactFloat64(),
				it.Tax.InexactFloat64(),
				it.LinePrice.InexactFloat64(),
				it.ItemPrice.InexactFloat64(),
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				_ = f.SetCellValue(sheetItems, cell, v)
			}
			row++
		}
	}

	_ = f.SetColWidth(sheetItems, "A", "A", 18)
	_ = f.SetColWidth(sheetItems, "B", "B", 22)
	_ = f.SetColWidth(sheetItems, "C", "D", 12)
	_ = f.SetColWidth(sheetItems, "E", "E", 40)
	_ = f.SetColWidth(sheetItems, "F", "F", 18)
	_ = f.SetColWidth(sheetItems, "G", "L", 12)
	return nil
}
