// Package insights builds the statistical summaries that are handed to the
// text generator as prompt context.
package insights

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

const (
	topCategoryLimit = 5
	recentLimit      = 60
)

type (
	Range struct {
		From time.Time `json:"from"`
		To   time.Time `json:"to"`
	}

	Totals struct {
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
		Net     decimal.Decimal `json:"net"`
		Count   int             `json:"count"`
	}

	Averages struct {
		DailyExpense decimal.Decimal `json:"dailyExpense"`
		DailyIncome  decimal.Decimal `json:"dailyIncome"`
	}

	CategoryTotal struct {
		Category string          `json:"category"`
		Total    decimal.Decimal `json:"total"`
		Count    int             `json:"count"`
	}

	MonthTotal struct {
		Month   string          `json:"month"`
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
	}

	// TransactionView is the prompt-facing projection of a transaction.
	TransactionView struct {
		Date        time.Time       `json:"date"`
		Amount      decimal.Decimal `json:"amount"`
		Type        string          `json:"type"`
		Category    *string         `json:"category"`
		Description *string         `json:"description"`
	}

	Snapshot struct {
		UserID               string            `json:"userId"`
		Range                Range             `json:"range"`
		Totals               Totals            `json:"totals"`
		Averages             Averages          `json:"averages"`
		TopExpenseCategories []CategoryTotal   `json:"topExpenseCategories"`
		TopIncomeCategories  []CategoryTotal   `json:"topIncomeCategories"`
		MonthlyBreakdown     []MonthTotal      `json:"monthlyBreakdown"`
		LargestExpense       *TransactionView  `json:"largestExpense"`
		LargestIncome        *TransactionView  `json:"largestIncome"`
		RecentTransactions   []TransactionView `json:"recentTransactions"`
	}
)

// EnsureRange rejects windows whose start is after their end.
func EnsureRange(from, to time.Time) error {
	if from.After(to) {
		return fmt.Errorf("%w: start date %s is after end date %s", core.ErrInvalidArgument,
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return nil
}

// BuildSnapshot summarizes txs over [rangeStart, rangeEnd]. It does not filter
// txs by the range; the caller has already done that.
func BuildSnapshot(userID string, txs []core.Transaction, rangeStart, rangeEnd time.Time) (Snapshot, error) {
	rangeStart, rangeEnd = rangeStart.UTC(), rangeEnd.UTC()
	if err := EnsureRange(rangeStart, rangeEnd); err != nil {
		return Snapshot{}, err
	}

	expenses, incomes := split(txs)
	totalExpense := core.SumAmounts(expenses)
	totalIncome := core.SumAmounts(incomes)

	days := core.DaysBetween(core.DateOf(rangeStart), core.DateOf(rangeEnd)) + 1
	if days < 1 {
		days = 1
	}
	totalDays := decimal.NewFromInt(int64(days))

	return Snapshot{
		UserID: userID,
		Range:  Range{From: rangeStart, To: rangeEnd},
		Totals: Totals{
			Income:  totalIncome,
			Expense: totalExpense,
			Net:     totalIncome.Sub(totalExpense),
			Count:   len(txs),
		},
		Averages: Averages{
			DailyExpense: totalExpense.Div(totalDays),
			DailyIncome:  totalIncome.Div(totalDays),
		},
		TopExpenseCategories: topCategories(expenses, topCategoryLimit),
		TopIncomeCategories:  topCategories(incomes, topCategoryLimit),
		MonthlyBreakdown:     monthlyBreakdown(txs),
		LargestExpense:       largest(expenses),
		LargestIncome:        largest(incomes),
		RecentTransactions:   recent(txs, recentLimit),
	}, nil
}

// View maps a transaction to its prompt projection.
func View(t core.Transaction) TransactionView {
	kind := "expense"
	if t.IsIncome {
		kind = "income"
	}
	return TransactionView{
		Date:        t.Date.UTC(),
		Amount:      t.Amount,
		Type:        kind,
		Category:    t.CategoryName,
		Description: t.Description,
	}
}

func split(txs []core.Transaction) (expenses, incomes []core.Transaction) {
	for _, t := range txs {
		if t.IsIncome {
			incomes = append(incomes, t)
		} else {
			expenses = append(expenses, t)
		}
	}
	return expenses, incomes
}

// topCategories groups by category name in first-seen order, then stable
// sorts by total so ties keep that order.
func topCategories(txs []core.Transaction, limit int) []CategoryTotal {
	groups := []CategoryTotal{}
	index := make(map[string]int)
	for _, t := range txs {
		name := core.Deref(t.CategoryName)
		if strings.TrimSpace(name) == "" {
			continue
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, CategoryTotal{Category: name, Total: decimal.Zero})
		}
		groups[i].Total = groups[i].Total.Add(t.Amount)
		groups[i].Count++
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Total.GreaterThan(groups[j].Total)
	})
	if len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}

func monthlyBreakdown(txs []core.Transaction) []MonthTotal {
	months := []MonthTotal{}
	index := make(map[string]int)
	for _, t := range txs {
		d := t.Date.UTC()
		key := fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
		i, ok := index[key]
		if !ok {
			i = len(months)
			index[key] = i
			months = append(months, MonthTotal{Month: key, Income: decimal.Zero, Expense: decimal.Zero})
		}
		if t.IsIncome {
			months[i].Income = months[i].Income.Add(t.Amount)
		} else {
			months[i].Expense = months[i].Expense.Add(t.Amount)
		}
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months
}

// largest returns the first transaction holding the maximum amount, or nil.
func largest(txs []core.Transaction) *TransactionView {
	if len(txs) == 0 {
		return nil
	}
	best := txs[0]
	for _, t := range txs[1:] {
		if t.Amount.GreaterThan(best.Amount) {
			best = t
		}
	}
	v := View(best)
	return &v
}

func recent(txs []core.Transaction, limit int) []TransactionView {
	sorted := make([]core.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	views := make([]TransactionView, 0, len(sorted))
	for _, t := range sorted {
		views = append(views, View(t))
	}
	return views
}
