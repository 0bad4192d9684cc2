package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/recap"

	"github.com/shopspring/decimal"
)

func seedCategory(t *testing.T, svc *CategoryService, owner, name string) core.Category {
	t.Helper()
	c, err := svc.Create(context.Background(), core.Category{Name: name, UserID: owner})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

func TestCategoryService_Ownership(t *testing.T) {
	store := newMemStore()
	svc := NewCategoryService(store, nil, log.Discard())
	ctx := context.Background()

	food := seedCategory(t, svc, "alice", "  Food ")
	if food.Name != "Food" {
		t.Errorf("name not trimmed: %q", food.Name)
	}

	if _, err := svc.Get(ctx, "bob", food.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign Get error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(ctx, "bob", core.Category{ID: food.ID, Name: "Mine"}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign Update error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "bob", food.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign Delete error = %v, want ErrNotFound", err)
	}

	updated, err := svc.Update(ctx, "alice", core.Category{ID: food.ID, Name: "Groceries", UserID: "bob"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "Groceries" || updated.UserID != "alice" {
		t.Errorf("unexpected update %+v", updated)
	}

	if _, err := svc.Create(ctx, core.Category{Name: " ", UserID: "alice"}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("blank name error = %v, want ErrInvalidArgument", err)
	}
}

func newTransactionFixture(t *testing.T) (*memStore, *CategoryService, *TransactionService, *cache.LRUCache[recap.Result]) {
	t.Helper()
	store := newMemStore()
	recaps := cache.NewLRUCache[recap.Result](16, time.Minute)
	txSvc := NewTransactionService(store, recap.NewAggregator(recap.DefaultFormat()), recaps, log.Discard())
	txSvc.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	catSvc := NewCategoryService(store, txSvc, log.Discard())
	return store, catSvc, txSvc, recaps
}

func TestTransactionService_CreateChecksCategoryOwner(t *testing.T) {
	_, catSvc, txSvc, _ := newTransactionFixture(t)
	ctx := context.Background()
	bobs := seedCategory(t, catSvc, "bob", "Rent")

	_, err := txSvc.Create(ctx, core.Transaction{
		Amount:     decimal.NewFromInt(10),
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		UserID:     "alice",
		CategoryID: bobs.ID,
	})
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("foreign category error = %v, want ErrInvalidArgument", err)
	}

	_, err = txSvc.Create(ctx, core.Transaction{
		Amount:     decimal.NewFromInt(-1),
		Date:       time.Now(),
		UserID:     "bob",
		CategoryID: bobs.ID,
	})
	if !errors.Is(err, core.ErrNegativeAmount) {
		t.Errorf("negative amount error = %v, want ErrNegativeAmount", err)
	}
}

func TestTransactionService_CRUD(t *testing.T) {
	_, catSvc, txSvc, _ := newTransactionFixture(t)
	ctx := context.Background()
	food := seedCategory(t, catSvc, "alice", "Food")

	created, err := txSvc.Create(ctx, core.Transaction{
		Description: core.StringPtr("lunch"),
		Amount:      decimal.RequireFromString("12.50"),
		Date:        time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC),
		UserID:      "alice",
		CategoryID:  food.ID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if core.Deref(created.CategoryName) != "Food" {
		t.Errorf("category name not loaded: %+v", created)
	}

	if _, err := txSvc.Get(ctx, "bob", created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign Get error = %v, want ErrNotFound", err)
	}

	created.Amount = decimal.NewFromInt(20)
	updated, err := txSvc.Update(ctx, "alice", created)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !updated.Amount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("amount = %s, want 20", updated.Amount)
	}

	if err := txSvc.Delete(ctx, "bob", created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign Delete error = %v, want ErrNotFound", err)
	}
	if err := txSvc.Delete(ctx, "alice", created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	list, err := txSvc.List(ctx, "alice")
	if err != nil || len(list) != 0 {
		t.Errorf("List() = %v, %v; want empty", list, err)
	}
}

func TestTransactionService_RecapCachedAndInvalidated(t *testing.T) {
	store, catSvc, txSvc, recaps := newTransactionFixture(t)
	ctx := context.Background()
	food := seedCategory(t, catSvc, "alice", "Food")

	add := func(day int, amount int64) {
		t.Helper()
		_, err := txSvc.Create(ctx, core.Transaction{
			Amount:     decimal.NewFromInt(amount),
			Date:       time.Date(2024, 3, day, 9, 0, 0, 0, time.UTC),
			UserID:     "alice",
			CategoryID: food.ID,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	add(1, 100)
	add(5, 40)

	res, err := txSvc.Recap(ctx, "alice", recap.Week)
	if err != nil {
		t.Fatalf("Recap() error = %v", err)
	}
	if res.StartDate.String() != "2024-03-01" || res.EndDate.String() != "2024-03-15" {
		t.Errorf("range = %s..%s", res.StartDate, res.EndDate)
	}
	if len(res.Data) != 2 || res.Data[0].Label != "Week of 2024-02-26" {
		t.Fatalf("unexpected buckets %+v", res.Data)
	}

	if _, err := txSvc.Recap(ctx, "alice", recap.Week); err != nil {
		t.Fatal(err)
	}
	if store.rangeCalls != 1 {
		t.Errorf("second recap hit storage, calls = %d", store.rangeCalls)
	}
	if recaps.Size() != 1 {
		t.Errorf("cache size = %d, want 1", recaps.Size())
	}

	add(6, 5)
	if recaps.Size() != 0 {
		t.Errorf("cache not invalidated on write, size = %d", recaps.Size())
	}
	res, err = txSvc.Recap(ctx, "alice", recap.Week)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Data[1].TotalAmount.Equal(decimal.NewFromInt(45)) {
		t.Errorf("second week total = %s, want 45", res.Data[1].TotalAmount)
	}

	if err := catSvc.Delete(ctx, "alice", food.ID); err != nil {
		t.Fatal(err)
	}
	if recaps.Size() != 0 {
		t.Errorf("category delete did not invalidate recap cache")
	}
}
