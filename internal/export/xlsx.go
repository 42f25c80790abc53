// Package export renders ledger rows as spreadsheet downloads.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

const (
	SheetName = "Ledger"

	// ContentType is the MIME type of WriteLedger's output.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []string{"Date", "Description", "Category", "Source", "Amount"}

// Amounts are stored in major units, so 2 decimals with grouping.
const amountFormat = "#,##0.00;[Red]-#,##0.00"

// WriteLedger writes rows (newest first, as listed) followed by income,
// expense and balance totals.
func WriteLedger(w io.Writer, rows []services.TransactionRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#2D3436"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "#000000", Style: 1}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	amountFmt := amountFormat
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &amountFmt})
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &amountFmt})
	if err != nil {
		return fmt.Errorf("total style: %w", err)
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	txs := make([]core.Transaction, 0, len(rows))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			row.Date.String(),
			row.Description,
			row.CategoryName,
			string(row.Source),
			row.Amount.Major(),
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
		txs = append(txs, row.Transaction)
	}
	if len(rows) > 0 {
		last := fmt.Sprintf("E%d", len(rows)+1)
		if err := f.SetCellStyle(SheetName, "E2", last, amountStyle); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}

	totals := core.ComputeTotals(txs)
	first := len(rows) + 3
	for i, line := range []struct {
		label string
		cents int64
	}{
		{"Income", totals.Income.Cents},
		{"Expenses", totals.Expenses.Cents},
		{"Balance", totals.Balance.Cents},
	} {
		r := first + i
		if err := f.SetCellValue(SheetName, fmt.Sprintf("D%d", r), line.label); err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, fmt.Sprintf("E%d", r), core.Money{Cents: line.cents}.Major()); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, fmt.Sprintf("D%d", r), fmt.Sprintf("E%d", r), totalStyle); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 12); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "B", "B", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "C", "E", 16); err != nil {
		return err
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Filename is the download name for a month, or the whole ledger when ym
// is the zero value.
func Filename(ym core.YearMonth) string {
	if !ym.Valid() {
		return "ledger.xlsx"
	}
	return "ledger-" + ym.String() + ".xlsx"
}
