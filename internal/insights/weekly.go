package insights

import (
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

type (
	WeekTotal struct {
		Start   core.Date       `json:"start"`
		End     core.Date       `json:"end"`
		Expense decimal.Decimal `json:"expense"`
	}

	WeeklyComparison struct {
		CurrentWeek      WeekTotal       `json:"currentWeek"`
		PreviousWeek     WeekTotal       `json:"previousWeek"`
		Difference       decimal.Decimal `json:"difference"`
		PercentageChange *float64        `json:"percentageChange"`
	}

	TopCategory struct {
		Category string          `json:"category"`
		Total    decimal.Decimal `json:"total"`
	}

	DigestTotals struct {
		Income       decimal.Decimal `json:"income"`
		Expense      decimal.Decimal `json:"expense"`
		Net          decimal.Decimal `json:"net"`
		Transactions int             `json:"transactions"`
	}

	DigestMetrics struct {
		Period         Range            `json:"period"`
		Totals         DigestTotals     `json:"totals"`
		TopCategory    *TopCategory     `json:"topCategory"`
		LargestExpense *TransactionView `json:"largestExpense"`
		LargestIncome  *TransactionView `json:"largestIncome"`
	}
)

// BuildWeeklyComparison compares expenses of the seven days ending at
// referenceEnd with the seven days before them.
func BuildWeeklyComparison(txs []core.Transaction, referenceEnd time.Time) WeeklyComparison {
	end := core.DateOf(referenceEnd)
	currentStart := end.AddDays(-6)
	previousEnd := currentStart.AddDays(-1)
	previousStart := previousEnd.AddDays(-6)

	current := expenseBetween(txs, currentStart, end)
	previous := expenseBetween(txs, previousStart, previousEnd)
	difference := current.Sub(previous)

	var pct *float64
	if !previous.IsZero() {
		v, _ := difference.Div(previous).Mul(decimal.NewFromInt(100)).Float64()
		pct = &v
	}

	return WeeklyComparison{
		CurrentWeek:      WeekTotal{Start: currentStart, End: end, Expense: current},
		PreviousWeek:     WeekTotal{Start: previousStart, End: previousEnd, Expense: previous},
		Difference:       difference,
		PercentageChange: pct,
	}
}

func expenseBetween(txs []core.Transaction, from, to core.Date) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		if t.IsIncome {
			continue
		}
		d := core.DateOf(t.Date)
		if d.Before(from.Time) || d.After(to.Time) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total
}

// BuildDigestMetrics summarizes a single day or week window.
func BuildDigestMetrics(txs []core.Transaction, rangeStart, rangeEnd time.Time) (DigestMetrics, error) {
	rangeStart, rangeEnd = rangeStart.UTC(), rangeEnd.UTC()
	if err := EnsureRange(rangeStart, rangeEnd); err != nil {
		return DigestMetrics{}, err
	}

	expenses, incomes := split(txs)
	totalExpense := core.SumAmounts(expenses)
	totalIncome := core.SumAmounts(incomes)

	return DigestMetrics{
		Period: Range{From: rangeStart, To: rangeEnd},
		Totals: DigestTotals{
			Income:       totalIncome,
			Expense:      totalExpense,
			Net:          totalIncome.Sub(totalExpense),
			Transactions: len(txs),
		},
		TopCategory:    topExpenseCategory(expenses),
		LargestExpense: largest(expenses),
		LargestIncome:  largest(incomes),
	}, nil
}

func topExpenseCategory(expenses []core.Transaction) *TopCategory {
	top := topCategories(expenses, 1)
	if len(top) == 0 {
		return nil
	}
	return &TopCategory{Category: top[0].Category, Total: top[0].Total}
}

// IsFinanceRelated reports whether question mentions any finance keyword.
func IsFinanceRelated(question string) bool {
	normalized := strings.ToLower(strings.TrimSpace(question))
	if normalized == "" {
		return false
	}
	for _, keyword := range financeKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

var financeKeywords = []string{
	"pengeluaran",
	"pemasukan",
	"transaksi",
	"tabungan",
	"budget",
	"anggaran",
	"saldo",
	"keuangan",
	"hemat",
	"invest",
	"utang",
	"hutang",
	"cicilan",
	"dompet",
	"uang",
	"laporan",
	"summary",
	"rekap",
	"spending",
	"spend",
	"expense",
	"income",
	"saving",
	"budgeting",
	"money",
	"balance",
	"transaction",
	"debt",
	"category",
	"report",
}
