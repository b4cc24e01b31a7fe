package invoices

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/track-invoice/track-invoice/internal/shared"
)

const (
	summarySheet = "Invoice"
	itemsSheet   = "Items"
	termsSheet   = "Terms"
)

var rupiah = message.NewPrinter(language.Indonesian)

// FormatAmount renders a money amount with Indonesian digit grouping.
func FormatAmount(v decimal.Decimal) string {
	return rupiah.Sprintf("Rp %.2f", v.InexactFloat64())
}

// WriteWorkbook renders inv as an xlsx workbook with a summary, items and
// terms sheet.
func WriteWorkbook(w io.Writer, inv *Invoice) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{itemsSheet, termsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	summary := [][]any{
		{"Invoice Number", inv.InvoiceNumber},
		{"Client", inv.CompanyName},
		{"Project", inv.ProjectTitle},
		{"Status", string(inv.Status)},
		{"Issue Date", dateCell(inv.IssueDate)},
		{"Due Date", dateCell(inv.DueDate)},
		{"Subtotal", FormatAmount(inv.Subtotal)},
		{"Discount", FormatAmount(inv.Discount)},
		{"Tax", FormatAmount(inv.Tax)},
		{"Total", FormatAmount(inv.Total)},
		{"Outstanding", FormatAmount(inv.Outstanding())},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return err
	}

	items := [][]any{{"No", "Item", "Description", "Qty", "Price", "Tax %", "Total"}}
	for i, it := range inv.Items {
		items = append(items, []any{
			i + 1, it.ItemName, it.Description, it.Qty.String(),
			FormatAmount(it.Price), it.TaxRate.String(), FormatAmount(it.Total),
		})
	}
	if err := writeRows(f, itemsSheet, items); err != nil {
		return err
	}

	terms := [][]any{{"Term", "Nominal", "Percentage", "Estimate", "Status", "Payment Date"}}
	for _, t := range inv.Terms {
		pct := ""
		if t.TermPercentage != nil {
			pct = t.TermPercentage.String()
		}
		terms = append(terms, []any{
			t.TermNumber, FormatAmount(t.Nominal), pct,
			dateCell(t.TermEstimate), string(t.TermStatus), dateCell(t.PaymentDate),
		})
	}
	if err := writeRows(f, termsSheet, terms); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func dateCell(d *shared.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
