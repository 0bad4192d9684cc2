package report

import (
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/insights"

	"github.com/shopspring/decimal"
)

type (
	Metric struct {
		Name  string `json:"name" yaml:"name"`
		Value string `json:"value" yaml:"value"`
	}

	CategoryRow struct {
		Category string `json:"category" yaml:"category"`
		Count    int    `json:"count" yaml:"count"`
		Total    string `json:"total" yaml:"total"`
	}

	MonthRow struct {
		Month   string `json:"month" yaml:"month"`
		Income  string `json:"income" yaml:"income"`
		Expense string `json:"expense" yaml:"expense"`
	}

	SnapshotDoc struct {
		From        string        `json:"from" yaml:"from"`
		To          string        `json:"to" yaml:"to"`
		Summary     []Metric      `json:"summary" yaml:"summary"`
		TopExpenses []CategoryRow `json:"topExpenses" yaml:"topExpenses"`
		TopIncomes  []CategoryRow `json:"topIncomes" yaml:"topIncomes"`
		Monthly     []MonthRow    `json:"monthly" yaml:"monthly"`
	}
)

func NewSnapshotDoc(s insights.Snapshot) SnapshotDoc {
	doc := SnapshotDoc{
		From: core.DateOf(s.Range.From).String(),
		To:   core.DateOf(s.Range.To).String(),
		Summary: []Metric{
			{"Transactions", fmt.Sprint(s.Totals.Count)},
			{"Income", s.Totals.Income.StringFixed(2)},
			{"Expense", s.Totals.Expense.StringFixed(2)},
			{"Net", s.Totals.Net.StringFixed(2)},
			{"Daily expense", s.Averages.DailyExpense.StringFixed(2)},
			{"Daily income", s.Averages.DailyIncome.StringFixed(2)},
		},
		TopExpenses: categoryRows(s.TopExpenseCategories),
		TopIncomes:  categoryRows(s.TopIncomeCategories),
		Monthly:     make([]MonthRow, 0, len(s.MonthlyBreakdown)),
	}
	if s.LargestExpense != nil {
		doc.Summary = append(doc.Summary, Metric{"Largest expense", s.LargestExpense.Amount.StringFixed(2)})
	}
	for _, m := range s.MonthlyBreakdown {
		doc.Monthly = append(doc.Monthly, MonthRow{
			Month:   m.Month,
			Income:  m.Income.StringFixed(2),
			Expense: m.Expense.StringFixed(2),
		})
	}
	return doc
}

func categoryRows(in []insights.CategoryTotal) []CategoryRow {
	out := make([]CategoryRow, 0, len(in))
	for _, c := range in {
		out = append(out, CategoryRow{Category: c.Category, Count: c.Count, Total: c.Total.StringFixed(2)})
	}
	return out
}

// mustFloat converts a fixed-point string produced by this package back to a
// number for spreadsheet cells.
func mustFloat(s string) float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}
