// Package recap groups a user's transactions into day, week or month buckets
// for charting.
package recap

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

type Period int

const (
	Day Period = iota
	Week
	Month
)

// ParsePeriod maps a query value to a Period. Unknown values fall back to Day.
func ParsePeriod(s string) Period {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week":
		return Week
	case "month":
		return Month
	default:
		return Day
	}
}

func (p Period) String() string {
	switch p {
	case Week:
		return "week"
	case Month:
		return "month"
	default:
		return "day"
	}
}

func (p Period) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// Format holds the layouts used for bucket labels.
type Format struct {
	DayLayout   string
	WeekLabel   string // fmt pattern taking the week start
	MonthLayout string
}

func DefaultFormat() Format {
	return Format{
		DayLayout:   core.DateLayout,
		WeekLabel:   "Week of %s",
		MonthLayout: "January 2006",
	}
}

type (
	Request struct {
		UserID       string
		Period       Period
		Start        core.Date
		End          core.Date
		Transactions []core.Transaction
	}

	Bucket struct {
		Label        string             `json:"label"`
		PeriodStart  core.Date          `json:"periodStart"`
		PeriodEnd    core.Date          `json:"periodEnd"`
		Transactions []core.Transaction `json:"transactions"`
		TotalAmount  decimal.Decimal    `json:"totalAmount"`
	}

	// Result is the wire shape consumed by the charting client.
	Result struct {
		Status    string    `json:"status"`
		Period    Period    `json:"period"`
		StartDate core.Date `json:"startDate"`
		EndDate   core.Date `json:"endDate"`
		Data      []Bucket  `json:"data"`
	}
)

type Aggregator struct {
	format Format
}

func NewAggregator(format Format) *Aggregator {
	return &Aggregator{format: format}
}

// MonthToDate returns the first day of now's month and now's day, both UTC.
func MonthToDate(now time.Time) (core.Date, core.Date) {
	today := core.DateOf(now)
	return core.NewDate(today.Year(), int(today.Month()), 1), today
}

// Aggregate buckets req.Transactions. Bucket totals are the plain sum of
// amounts; income and expense are not netted.
func (a *Aggregator) Aggregate(req Request) (Result, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return Result{}, fmt.Errorf("%w: userId is required", core.ErrInvalidArgument)
	}

	txs := make([]core.Transaction, len(req.Transactions))
	for i, t := range req.Transactions {
		t.Date = t.Date.UTC()
		txs[i] = t
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })

	var buckets []Bucket
	switch req.Period {
	case Week:
		buckets = a.group(txs, func(d core.Date) (core.Date, core.Date, string) {
			start := weekStart(d)
			end := start.AddDays(6)
			if !req.End.IsZero() && end.After(req.End.Time) {
				end = req.End
			}
			return start, end, fmt.Sprintf(a.format.WeekLabel, start.Format(a.format.DayLayout))
		})
	case Month:
		if len(txs) > 0 {
			buckets = []Bucket{{
				Label:        req.Start.Format(a.format.MonthLayout),
				PeriodStart:  req.Start,
				PeriodEnd:    req.End,
				Transactions: txs,
				TotalAmount:  core.SumAmounts(txs),
			}}
		}
	default:
		buckets = a.group(txs, func(d core.Date) (core.Date, core.Date, string) {
			return d, d, d.Format(a.format.DayLayout)
		})
	}
	if buckets == nil {
		buckets = []Bucket{}
	}

	return Result{
		Status:    "success",
		Period:    req.Period,
		StartDate: req.Start,
		EndDate:   req.End,
		Data:      buckets,
	}, nil
}

// group partitions date-sorted txs by the bucket key returns. Since input is
// sorted, buckets come out ascending.
func (a *Aggregator) group(txs []core.Transaction, key func(core.Date) (core.Date, core.Date, string)) []Bucket {
	var buckets []Bucket
	index := make(map[time.Time]int)
	for _, t := range txs {
		start, end, label := key(core.DateOf(t.Date))
		i, ok := index[start.Time]
		if !ok {
			i = len(buckets)
			index[start.Time] = i
			buckets = append(buckets, Bucket{
				Label:       label,
				PeriodStart: start,
				PeriodEnd:   end,
				TotalAmount: decimal.Zero,
			})
		}
		buckets[i].Transactions = append(buckets[i].Transactions, t)
		buckets[i].TotalAmount = buckets[i].TotalAmount.Add(t.Amount)
	}
	return buckets
}

// weekStart returns the Monday on or before d.
func weekStart(d core.Date) core.Date {
	offset := (7 + int(d.Weekday()-time.Monday)) % 7
	return d.AddDays(-offset)
}
