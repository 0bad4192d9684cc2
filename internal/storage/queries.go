package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror table columns; times are stored as fixed-width UTC text.
type (
	UserRow struct {
		ID           string
		FullName     string
		Email        string
		PasswordHash string
		CreatedAt    string
		IsActive     bool
	}

	CategoryRow struct {
		ID          int64
		Name        string
		Description sql.NullString
		IsIncome    bool
		UserID      string
	}

	TransactionRow struct {
		ID           int64
		Description  sql.NullString
		Amount       string
		Date         string
		IsIncome     bool
		UserID       string
		CategoryID   int64
		CategoryName sql.NullString
	}

	ResetTokenRow struct {
		ID        int64
		UserID    string
		TokenHash string
		ExpiresAt string
		CreatedAt string
		UsedAt    sql.NullString
	}
)

const createUser = `
INSERT INTO users (id, full_name, email, password_hash, created_at, is_active)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateUser(ctx context.Context, arg UserRow) error {
	_, err := q.db.ExecContext(ctx, createUser, arg.ID, arg.FullName, arg.Email, arg.PasswordHash, arg.CreatedAt, arg.IsActive)
	return err
}

const userColumns = `id, full_name, email, password_hash, created_at, is_active`

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id string) (UserRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (UserRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY full_name, email`

func (q *Queries) ListUsers(ctx context.Context) ([]UserRow, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserRow
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateUserPassword = `UPDATE users SET password_hash = ? WHERE id = ?`

func (q *Queries) UpdateUserPassword(ctx context.Context, id, hash string) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, hash, id)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s scanner) (UserRow, error) {
	var i UserRow
	err := s.Scan(&i.ID, &i.FullName, &i.Email, &i.PasswordHash, &i.CreatedAt, &i.IsActive)
	return i, err
}

const createCategory = `
INSERT INTO categories (name, description, is_income, user_id)
VALUES (?, ?, ?, ?)
RETURNING id
`

func (q *Queries) CreateCategory(ctx context.Context, arg CategoryRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createCategory, arg.Name, arg.Description, arg.IsIncome, arg.UserID).Scan(&id)
	return id, err
}

const categoryColumns = `id, name, description, is_income, user_id`

const getCategory = `SELECT ` + categoryColumns + ` FROM categories WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id int64) (CategoryRow, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategory, id))
}

const listCategoriesByUser = `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = ? ORDER BY name`

func (q *Queries) ListCategoriesByUser(ctx context.Context, userID string) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategoriesByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRow
	for rows.Next() {
		i, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateCategory = `
UPDATE categories SET name = ?, description = ?, is_income = ?, user_id = ?
WHERE id = ?
`

func (q *Queries) UpdateCategory(ctx context.Context, arg CategoryRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCategory, arg.Name, arg.Description, arg.IsIncome, arg.UserID, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanCategory(s scanner) (CategoryRow, error) {
	var i CategoryRow
	err := s.Scan(&i.ID, &i.Name, &i.Description, &i.IsIncome, &i.UserID)
	return i, err
}

const createTransaction = `
INSERT INTO transactions (description, amount, date, is_income, user_id, category_id)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id
`

func (q *Queries) CreateTransaction(ctx context.Context, arg TransactionRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createTransaction,
		arg.Description, arg.Amount, arg.Date, arg.IsIncome, arg.UserID, arg.CategoryID).Scan(&id)
	return id, err
}

const transactionSelect = `
SELECT t.id, t.description, t.amount, t.date, t.is_income, t.user_id, t.category_id, c.name
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id
`

const getTransaction = transactionSelect + `WHERE t.id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const listTransactionsByUser = transactionSelect + `WHERE t.user_id = ? ORDER BY t.date DESC, t.id DESC`

func (q *Queries) ListTransactionsByUser(ctx context.Context, userID string) ([]TransactionRow, error) {
	return q.queryTransactions(ctx, listTransactionsByUser, userID)
}

const listTransactionsInRange = transactionSelect + `
WHERE t.user_id = ? AND t.date >= ? AND t.date <= ?
ORDER BY t.date DESC, t.id DESC
LIMIT ?
`

type ListTransactionsInRangeParams struct {
	UserID string
	From   string
	To     string
	Limit  int64
}

func (q *Queries) ListTransactionsInRange(ctx context.Context, arg ListTransactionsInRangeParams) ([]TransactionRow, error) {
	return q.queryTransactions(ctx, listTransactionsInRange, arg.UserID, arg.From, arg.To, arg.Limit)
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateTransaction = `
UPDATE transactions
SET description = ?, amount = ?, date = ?, is_income = ?, user_id = ?, category_id = ?
WHERE id = ?
`

func (q *Queries) UpdateTransaction(ctx context.Context, arg TransactionRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Description, arg.Amount, arg.Date, arg.IsIncome, arg.UserID, arg.CategoryID, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanTransaction(s scanner) (TransactionRow, error) {
	var i TransactionRow
	err := s.Scan(&i.ID, &i.Description, &i.Amount, &i.Date, &i.IsIncome, &i.UserID, &i.CategoryID, &i.CategoryName)
	return i, err
}

const createResetToken = `
INSERT INTO password_reset_tokens (user_id, token_hash, expires_at, created_at)
VALUES (?, ?, ?, ?)
RETURNING id
`

func (q *Queries) CreateResetToken(ctx context.Context, arg ResetTokenRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createResetToken, arg.UserID, arg.TokenHash, arg.ExpiresAt, arg.CreatedAt).Scan(&id)
	return id, err
}

const getResetTokenByHash = `
SELECT id, user_id, token_hash, expires_at, created_at, used_at
FROM password_reset_tokens WHERE token_hash = ?
`

func (q *Queries) GetResetTokenByHash(ctx context.Context, hash string) (ResetTokenRow, error) {
	var i ResetTokenRow
	err := q.db.QueryRowContext(ctx, getResetTokenByHash, hash).Scan(
		&i.ID, &i.UserID, &i.TokenHash, &i.ExpiresAt, &i.CreatedAt, &i.UsedAt)
	return i, err
}

const invalidateResetTokens = `
UPDATE password_reset_tokens SET used_at = ?
WHERE user_id = ? AND used_at IS NULL AND expires_at > ?
`

func (q *Queries) InvalidateResetTokens(ctx context.Context, userID, now string) (int64, error) {
	res, err := q.db.ExecContext(ctx, invalidateResetTokens, now, userID, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markResetTokenUsed = `UPDATE password_reset_tokens SET used_at = ? WHERE id = ?`

func (q *Queries) MarkResetTokenUsed(ctx context.Context, id int64, now string) error {
	_, err := q.db.ExecContext(ctx, markResetTokenUsed, now, id)
	return err
}
