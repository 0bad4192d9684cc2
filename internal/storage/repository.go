package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timeLayout is fixed width so text comparison in SQL matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	err := r.queries.CreateUser(ctx, UserRow{
		ID:           u.ID,
		FullName:     u.FullName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    formatTime(u.CreatedAt),
		IsActive:     u.IsActive,
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("create user %s: %w", u.Email, core.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User saved to SQLite", "id", u.ID)
	return nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	row, err := r.queries.GetUserByID(ctx, id)
	if err != nil {
		return core.User{}, wrapNotFound(err, "get user %s", id)
	}
	return toUser(row)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row, err := r.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return core.User{}, wrapNotFound(err, "get user by email")
	}
	return toUser(row)
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]core.User, 0, len(rows))
	for _, row := range rows {
		u, err := toUser(row)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	id, err := r.queries.CreateCategory(ctx, fromCategory(c))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.ID = id
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row, err := r.queries.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, wrapNotFound(err, "get category %d", id)
	}
	return toCategory(row), nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.queries.ListCategoriesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCategory(row))
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	n, err := r.queries.UpdateCategory(ctx, fromCategory(c))
	if err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update category %d: %w", c.ID, core.ErrNotFound)
	}
	return nil
}

// DeleteCategory removes a category and, through the foreign key, its
// transactions.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete category %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	id, err := r.queries.CreateTransaction(ctx, fromTransaction(t))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"amount", t.Amount.String(),
		"is_income", t.IsIncome,
		"date", t.Date.UTC().Format(time.RFC3339))

	return r.GetTransaction(ctx, id)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, wrapNotFound(err, "get transaction %d", id)
	}
	return toTransaction(row)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toTransactions(rows)
}

// ListTransactionsInRange returns the user's transactions with from <= date <= to,
// newest first. A non-positive limit means no limit.
func (r *SQLiteRepository) ListTransactionsInRange(ctx context.Context, userID string, from, to time.Time, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.queries.ListTransactionsInRange(ctx, ListTransactionsInRangeParams{
		UserID: userID,
		From:   formatTime(from),
		To:     formatTime(to),
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions in range: %w", err)
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	n, err := r.queries.UpdateTransaction(ctx, fromTransaction(t))
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update transaction %d: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// ReplaceResetToken invalidates the user's active tokens and stores tok in a
// single transaction.
func (r *SQLiteRepository) ReplaceResetToken(ctx context.Context, tok core.PasswordResetToken) (core.PasswordResetToken, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return tok, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	invalidated, err := q.InvalidateResetTokens(ctx, tok.UserID, formatTime(tok.CreatedAt))
	if err != nil {
		return tok, fmt.Errorf("invalidate reset tokens: %w", err)
	}
	id, err := q.CreateResetToken(ctx, ResetTokenRow{
		UserID:    tok.UserID,
		TokenHash: tok.TokenHash,
		ExpiresAt: formatTime(tok.ExpiresAt),
		CreatedAt: formatTime(tok.CreatedAt),
	})
	if err != nil {
		return tok, fmt.Errorf("create reset token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return tok, fmt.Errorf("commit reset token: %w", err)
	}

	slog.InfoContext(ctx, "Password reset token stored", "user_id", tok.UserID, "invalidated", invalidated)
	tok.ID = id
	return tok, nil
}

func (r *SQLiteRepository) GetResetTokenByHash(ctx context.Context, hash string) (core.PasswordResetToken, error) {
	row, err := r.queries.GetResetTokenByHash(ctx, hash)
	if err != nil {
		return core.PasswordResetToken{}, wrapNotFound(err, "get reset token")
	}
	return toResetToken(row)
}

func (r *SQLiteRepository) MarkResetTokenUsed(ctx context.Context, id int64, at time.Time) error {
	if err := r.queries.MarkResetTokenUsed(ctx, id, formatTime(at)); err != nil {
		return fmt.Errorf("mark reset token used: %w", err)
	}
	return nil
}

// CompletePasswordReset stores the new hash and consumes the token atomically.
func (r *SQLiteRepository) CompletePasswordReset(ctx context.Context, tokenID int64, userID, passwordHash string, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.UpdateUserPassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := q.MarkResetTokenUsed(ctx, tokenID, formatTime(at)); err != nil {
		return fmt.Errorf("mark reset token used: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit password reset: %w", err)
	}

	slog.InfoContext(ctx, "Password reset completed", "user_id", userID)
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func wrapNotFound(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toUser(row UserRow) (core.User, error) {
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.User{}, err
	}
	return core.User{
		ID:           row.ID,
		FullName:     row.FullName,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		CreatedAt:    created,
		IsActive:     row.IsActive,
	}, nil
}

func fromCategory(c core.Category) CategoryRow {
	return CategoryRow{
		ID:          c.ID,
		Name:        c.Name,
		Description: nullString(c.Description),
		IsIncome:    c.IsIncome,
		UserID:      c.UserID,
	}
}

func toCategory(row CategoryRow) core.Category {
	return core.Category{
		ID:          row.ID,
		Name:        row.Name,
		Description: stringPtr(row.Description),
		IsIncome:    row.IsIncome,
		UserID:      row.UserID,
	}
}

func fromTransaction(t core.Transaction) TransactionRow {
	return TransactionRow{
		ID:          t.ID,
		Description: nullString(t.Description),
		Amount:      t.Amount.String(),
		Date:        formatTime(t.Date),
		IsIncome:    t.IsIncome,
		UserID:      t.UserID,
		CategoryID:  t.CategoryID,
	}
}

func toTransaction(row TransactionRow) (core.Transaction, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored amount %q: %w", row.Amount, err)
	}
	date, err := parseTime(row.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:           row.ID,
		Description:  stringPtr(row.Description),
		Amount:       amount,
		Date:         date,
		IsIncome:     row.IsIncome,
		UserID:       row.UserID,
		CategoryID:   row.CategoryID,
		CategoryName: stringPtr(row.CategoryName),
	}, nil
}

func toTransactions(rows []TransactionRow) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func toResetToken(row ResetTokenRow) (core.PasswordResetToken, error) {
	expires, err := parseTime(row.ExpiresAt)
	if err != nil {
		return core.PasswordResetToken{}, err
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.PasswordResetToken{}, err
	}
	tok := core.PasswordResetToken{
		ID:        row.ID,
		UserID:    row.UserID,
		TokenHash: row.TokenHash,
		ExpiresAt: expires,
		CreatedAt: created,
	}
	if row.UsedAt.Valid {
		used, err := parseTime(row.UsedAt.String)
		if err != nil {
			return core.PasswordResetToken{}, err
		}
		tok.UsedAt = &used
	}
	return tok, nil
}
