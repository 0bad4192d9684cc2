package report

import (
	"fmt"

	"fintrack/internal/insights"
	"fintrack/internal/recap"

	"github.com/xuri/excelize/v2"
)

// SaveRecapXLSX writes r to a workbook with a single "Recap" sheet.
func SaveRecapXLSX(path string, r recap.Result) error {
	doc := NewRecapDoc(r)

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Recap"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]any{{"Period", "From", "To", "Transactions", "Total"}}
	for _, b := range doc.Buckets {
		rows = append(rows, []any{b.Label, b.Start, b.End, b.Transactions, mustFloat(b.Total)})
	}
	rows = append(rows, []any{"Total", doc.Start, doc.End, nil, mustFloat(doc.Total)})
	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// SaveSnapshotXLSX writes s to a workbook with Summary, Categories and
// Monthly sheets.
func SaveSnapshotXLSX(path string, s insights.Snapshot) error {
	doc := NewSnapshotDoc(s)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), "Summary"); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	summary := [][]any{{"Metric", "Value"}, {"From", doc.From}, {"To", doc.To}}
	for _, m := range doc.Summary {
		summary = append(summary, []any{m.Name, m.Value})
	}
	if err := writeRows(f, "Summary", summary); err != nil {
		return err
	}

	cats := [][]any{{"Type", "Category", "Count", "Total"}}
	for _, c := range doc.TopExpenses {
		cats = append(cats, []any{"expense", c.Category, c.Count, mustFloat(c.Total)})
	}
	for _, c := range doc.TopIncomes {
		cats = append(cats, []any{"income", c.Category, c.Count, mustFloat(c.Total)})
	}
	if _, err := f.NewSheet("Categories"); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	if err := writeRows(f, "Categories", cats); err != nil {
		return err
	}

	months := [][]any{{"Month", "Income", "Expense"}}
	for _, m := range doc.Monthly {
		months = append(months, []any{m.Month, mustFloat(m.Income), mustFloat(m.Expense)})
	}
	if _, err := f.NewSheet("Monthly"); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	if err := writeRows(f, "Monthly", months); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
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
