package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/recap"
)

type TransactionStore interface {
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	ListTransactionsInRange(ctx context.Context, userID string, from, to time.Time, limit int) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
}

// TransactionService manages a user's ledger and serves the month-to-date
// recap. Recaps are memoized per user and dropped on any ledger write.
type TransactionService struct {
	store      TransactionStore
	aggregator *recap.Aggregator
	recaps     cache.Cache[recap.Result]
	logger     *log.Logger
	now        func() time.Time
}

// NewTransactionService builds the service. recaps may be nil to disable
// memoization.
func NewTransactionService(store TransactionStore, aggregator *recap.Aggregator, recaps cache.Cache[recap.Result], logger *log.Logger) *TransactionService {
	return &TransactionService{
		store:      store,
		aggregator: aggregator,
		recaps:     recaps,
		logger:     logger.WithComponent(log.ComponentLedger),
		now:        time.Now,
	}
}

// List returns the owner's transactions, newest first.
func (s *TransactionService) List(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) Get(ctx context.Context, ownerID string, id int64) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.UserID != ownerID {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Date = t.Date.UTC()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	if err := s.checkCategory(ctx, t.UserID, t.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.InvalidateRecap(t.UserID)
	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldUserID, created.UserID,
		"transaction_id", created.ID,
		"amount", created.Amount.String())
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, ownerID string, t core.Transaction) (core.Transaction, error) {
	existing, err := s.Get(ctx, ownerID, t.ID)
	if err != nil {
		return core.Transaction{}, err
	}

	existing.Description = t.Description
	existing.Amount = t.Amount
	existing.Date = t.Date.UTC()
	existing.IsIncome = t.IsIncome
	existing.CategoryID = t.CategoryID
	if err := existing.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	if err := s.checkCategory(ctx, ownerID, existing.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.UpdateTransaction(ctx, existing); err != nil {
		return core.Transaction{}, err
	}
	s.InvalidateRecap(ownerID)
	return s.store.GetTransaction(ctx, existing.ID)
}

func (s *TransactionService) Delete(ctx context.Context, ownerID string, id int64) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.InvalidateRecap(ownerID)
	return nil
}

// Recap buckets the owner's month-to-date transactions by period.
func (s *TransactionService) Recap(ctx context.Context, ownerID string, period recap.Period) (recap.Result, error) {
	start, end := recap.MonthToDate(s.now())
	key := recapKey(ownerID, period, start, end)

	if s.recaps != nil {
		if cached, ok := s.recaps.Get(key); ok {
			s.logger.DebugContext(ctx, "Recap served from cache", log.FieldUserID, ownerID, log.FieldPeriod, period.String())
			return cached, nil
		}
	}

	txs, err := s.store.ListTransactionsInRange(ctx, ownerID, start.Time, end.EndOfDay(), 0)
	if err != nil {
		return recap.Result{}, fmt.Errorf("load recap transactions: %w", err)
	}

	result, err := s.aggregator.Aggregate(recap.Request{
		UserID:       ownerID,
		Period:       period,
		Start:        start,
		End:          end,
		Transactions: txs,
	})
	if err != nil {
		return recap.Result{}, err
	}

	if s.recaps != nil {
		s.recaps.Set(key, result)
	}
	s.logger.DebugContext(ctx, "Recap computed",
		log.FieldUserID, ownerID,
		log.FieldPeriod, period.String(),
		log.FieldCount, len(txs))
	return result, nil
}

// InvalidateRecap drops every cached recap of userID.
func (s *TransactionService) InvalidateRecap(userID string) {
	if s.recaps == nil {
		return
	}
	s.recaps.DeletePrefix(recapPrefix(userID))
}

func (s *TransactionService) checkCategory(ctx context.Context, ownerID string, categoryID int64) error {
	c, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("%w: category %d does not exist", core.ErrInvalidArgument, categoryID)
		}
		return err
	}
	if c.UserID != ownerID {
		return fmt.Errorf("%w: category %d does not exist", core.ErrInvalidArgument, categoryID)
	}
	return nil
}

func recapPrefix(userID string) string {
	return "recap:" + userID + ":"
}

func recapKey(userID string, period recap.Period, start, end core.Date) string {
	return fmt.Sprintf("%s%s:%s:%s", recapPrefix(userID), period, start, end)
}
