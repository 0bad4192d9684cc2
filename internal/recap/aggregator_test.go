package recap

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

func tx(y, m, d int, amount int64, income bool, category string) core.Transaction {
	return core.Transaction{
		Date:         time.Date(y, time.Month(m), d, 9, 30, 0, 0, time.UTC),
		Amount:       decimal.NewFromInt(amount),
		IsIncome:     income,
		CategoryName: core.StringPtr(category),
	}
}

func march(p Period, txs ...core.Transaction) Request {
	return Request{
		UserID:       "user-1",
		Period:       p,
		Start:        core.NewDate(2024, 3, 1),
		End:          core.NewDate(2024, 3, 15),
		Transactions: txs,
	}
}

func TestParsePeriod(t *testing.T) {
	cases := map[string]Period{
		"day":    Day,
		"week":   Week,
		" WEEK ": Week,
		"Month":  Month,
		"":       Day,
		"year":   Day,
	}
	for in, want := range cases {
		if got := ParsePeriod(in); got != want {
			t.Errorf("ParsePeriod(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestAggregate_BlankUser(t *testing.T) {
	a := NewAggregator(DefaultFormat())
	req := march(Day, tx(2024, 3, 1, 10, false, "Food"))
	req.UserID = "   "
	_, err := a.Aggregate(req)
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAggregate_DaySingleBucket(t *testing.T) {
	a := NewAggregator(DefaultFormat())
	res, err := a.Aggregate(march(Day,
		tx(2024, 3, 1, 100, true, ""),
		tx(2024, 3, 1, 40, false, "Food"),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Data) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(res.Data))
	}
	b := res.Data[0]
	if b.Label != "2024-03-01" {
		t.Errorf("label = %q", b.Label)
	}
	if !b.TotalAmount.Equal(decimal.NewFromInt(140)) {
		t.Errorf("totalAmount = %s, want 140", b.TotalAmount)
	}
	if !b.PeriodStart.Equal(b.PeriodEnd.Time) {
		t.Errorf("day bucket should start and end on the same date")
	}
}

func TestAggregate_DayOrderingAndPartition(t *testing.T) {
	a := NewAggregator(DefaultFormat())
	input := []core.Transaction{
		tx(2024, 3, 5, 7, false, "Food"),
		tx(2024, 3, 2, 3, true, "Salary"),
		tx(2024, 3, 5, 11, false, "Fuel"),
		tx(2024, 3, 3, 1, false, ""),
	}
	res, err := a.Aggregate(march(Day, input...))
	if err != nil {
		t.Fatal(err)
	}
	wantLabels := []string{"2024-03-02", "2024-03-03", "2024-03-05"}
	if len(res.Data) != len(wantLabels) {
		t.Fatalf("expected %d buckets, got %d", len(wantLabels), len(res.Data))
	}
	count := 0
	sum := decimal.Zero
	for i, b := range res.Data {
		if b.Label != wantLabels[i] {
			t.Errorf("bucket %d label = %q, want %q", i, b.Label, wantLabels[i])
		}
		count += len(b.Transactions)
		sum = sum.Add(b.TotalAmount)
	}
	if count != len(input) {
		t.Errorf("partition lost transactions: %d of %d", count, len(input))
	}
	if !sum.Equal(core.SumAmounts(input)) {
		t.Errorf("bucket totals %s != input total %s", sum, core.SumAmounts(input))
	}
}

func TestAggregate_WeekMondayToSunday(t *testing.T) {
	a := NewAggregator(DefaultFormat())
	res, err := a.Aggregate(march(Week,
		tx(2024, 3, 4, 10, false, "Food"),
		tx(2024, 3, 10, 5, false, "Food"),
	))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Data) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(res.Data))
	}
	b := res.Data[0]
	if b.PeriodStart.String() != "2024-03-04" || b.PeriodEnd.String() != "2024-03-10" {
		t.Errorf("got %s..%s", b.PeriodStart, b.PeriodEnd)
	}
	if b.Label != "Week of 2024-03-04" {
		t.Errorf("label = %q", b.Label)
	}
}

func TestAggregate_WeekBoundariesAndClamp(t *testing.T) {
	a := NewAggregator(DefaultFormat())
	input := []core.Transaction{
		tx(2024, 3, 1, 1, false, ""),  // Friday, week of Feb 26
		tx(2024, 3, 3, 2, false, ""),  // Sunday, same week
		tx(2024, 3, 11, 3, true, ""),  // Monday
		tx(2024, 3, 14, 4, false, ""), // Thursday, week clamped at 15th
	}
	res, err := a.Aggregate(march(Week, input...))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Data) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(res.Data))
	}
	first, second := res.Data[0], res.Data[1]
	if first.PeriodStart.String() != "2024-02-26" || first.PeriodEnd.String() != "2024-03-03" {
		t.Errorf("first bucket %s..%s", first.PeriodStart, first.PeriodEnd)
	}
	if second.PeriodStart.String() != "2024-03-11" || second.PeriodEnd.String() != "2024-03-15" {
		t.Errorf("second bucket %s..%s, want clamp to query end", second.PeriodStart, second.PeriodEnd)
	}
	for _, b := range res.Data {
		if b.PeriodStart.Weekday() != time.Monday {
			t.Errorf("bucket %q starts on %s", b.Label, b.PeriodStart.Weekday())
		}
		if core.DaysBetween(b.PeriodStart, b.PeriodEnd) > 6 {
			t.Errorf("bucket %q spans more than 7 days", b.Label)
		}
	}
	if !first.TotalAmount.Equal(decimal.NewFromInt(3)) || !second.TotalAmount.Equal(decimal.NewFromInt(7)) {
		t.Errorf("totals %s / %s", first.TotalAmount, second.TotalAmount)
	}
}

func TestAggregate_Month(t *testing.T) {
	a := NewAggregator(DefaultFormat())
	res, err := a.Aggregate(march(Month,
		tx(2024, 3, 2, 10, true, ""),
		tx(2024, 3, 9, 15, false, ""),
	))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Data) != 1 {
		t.Fatalf("expected a single month bucket, got %d", len(res.Data))
	}
	b := res.Data[0]
	if b.Label != "March 2024" {
		t.Errorf("label = %q", b.Label)
	}
	if b.PeriodStart.String() != "2024-03-01" || b.PeriodEnd.String() != "2024-03-15" {
		t.Errorf("range %s..%s", b.PeriodStart, b.PeriodEnd)
	}
	if !b.TotalAmount.Equal(decimal.NewFromInt(25)) {
		t.Errorf("total %s", b.TotalAmount)
	}
}

func TestAggregate_EmptyInput(t *testing.T) {
	a := NewAggregator(DefaultFormat())
	for _, p := range []Period{Day, Week, Month} {
		t.Run(p.String(), func(t *testing.T) {
			res, err := a.Aggregate(march(p))
			if err != nil {
				t.Fatal(err)
			}
			if res.Data == nil || len(res.Data) != 0 {
				t.Fatalf("expected empty non-nil bucket list, got %#v", res.Data)
			}
		})
	}
}

func TestAggregate_NormalizesToUTC(t *testing.T) {
	a := NewAggregator(DefaultFormat())
	jakarta := time.FixedZone("WIB", 7*3600)
	in := core.Transaction{Date: time.Date(2024, 3, 5, 2, 0, 0, 0, jakarta), Amount: decimal.NewFromInt(1)}
	res, err := a.Aggregate(march(Day, in))
	if err != nil {
		t.Fatal(err)
	}
	if res.Data[0].Label != "2024-03-04" {
		t.Fatalf("expected UTC day 2024-03-04, got %s", res.Data[0].Label)
	}
}

func TestResult_WireShape(t *testing.T) {
	a := NewAggregator(DefaultFormat())
	res, err := a.Aggregate(march(Week, tx(2024, 3, 4, 10, false, "Food")))
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	out := string(b)
	for _, want := range []string{
		`"status":"success"`,
		`"period":"week"`,
		`"startDate":"2024-03-01"`,
		`"endDate":"2024-03-15"`,
		`"label":"Week of 2024-03-04"`,
		`"periodStart":"2024-03-04"`,
		`"totalAmount":10`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

func TestMonthToDate(t *testing.T) {
	start, end := MonthToDate(time.Date(2024, 3, 15, 22, 0, 0, 0, time.UTC))
	if start.String() != "2024-03-01" || end.String() != "2024-03-15" {
		t.Fatalf("got %s..%s", start, end)
	}
}
