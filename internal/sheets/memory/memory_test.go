package memory

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/recap"

	"github.com/shopspring/decimal"
)

func sampleRecap() recap.Result {
	txs := []core.Transaction{
		{ID: 1, Amount: decimal.NewFromInt(10), Date: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), UserID: "alice"},
		{ID: 2, Amount: decimal.RequireFromString("2.5"), Date: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), UserID: "alice"},
	}
	res, _ := recap.NewAggregator(recap.DefaultFormat()).Aggregate(recap.Request{
		UserID:       "alice",
		Period:       recap.Day,
		Start:        core.NewDate(2024, 3, 1),
		End:          core.NewDate(2024, 3, 15),
		Transactions: txs,
	})
	return res
}

func TestStore_AppendRecap(t *testing.T) {
	s := New()
	ref, err := s.AppendRecap(context.Background(), "alice", sampleRecap())
	if err != nil {
		t.Fatal(err)
	}
	if ref != "mem:2-3" {
		t.Errorf("ref = %q, want mem:2-3", ref)
	}

	rows := s.Rows()
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "User" {
		t.Errorf("first row should be the header, got %v", rows[0])
	}
	if rows[1][2] != "2024-03-04" || rows[2][6] != "2.50" {
		t.Errorf("unexpected rows %v", rows[1:])
	}

	ref, _ = s.AppendRecap(context.Background(), "alice", sampleRecap())
	if ref != "mem:4-5" {
		t.Errorf("second append ref = %q, header must not repeat", ref)
	}
}

func TestStore_RequiresUser(t *testing.T) {
	if _, err := New().AppendRecap(context.Background(), " ", sampleRecap()); err == nil {
		t.Error("expected error for blank user")
	}
}
