package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/notify"
)

// memStore is an in-memory stand-in for the SQLite repository.
type memStore struct {
	mu           sync.Mutex
	users        map[string]core.User
	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	tokens       map[int64]core.PasswordResetToken
	nextID       int64
	rangeCalls   int
	lastLimit    int
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[string]core.User{},
		categories:   map[int64]core.Category{},
		transactions: map[int64]core.Transaction{},
		tokens:       map[int64]core.PasswordResetToken{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateUser(_ context.Context, u core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return fmt.Errorf("create user: %w", core.ErrConflict)
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (m *memStore) ListUsers(_ context.Context) ([]core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []core.User
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].FullName < users[j].FullName })
	return users, nil
}

func (m *memStore) ReplaceResetToken(_ context.Context, tok core.PasswordResetToken) (core.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.tokens {
		if existing.UserID == tok.UserID && existing.UsedAt == nil {
			at := tok.CreatedAt
			existing.UsedAt = &at
			m.tokens[id] = existing
		}
	}
	tok.ID = m.id()
	m.tokens[tok.ID] = tok
	return tok, nil
}

func (m *memStore) GetResetTokenByHash(_ context.Context, hash string) (core.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tok := range m.tokens {
		if tok.TokenHash == hash {
			return tok, nil
		}
	}
	return core.PasswordResetToken{}, core.ErrNotFound
}

func (m *memStore) MarkResetTokenUsed(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok := m.tokens[id]
	tok.UsedAt = &at
	m.tokens[id] = tok
	return nil
}

func (m *memStore) CompletePasswordReset(_ context.Context, tokenID int64, userID, passwordHash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[userID]
	u.PasswordHash = passwordHash
	m.users[userID] = u
	tok := m.tokens[tokenID]
	tok.UsedAt = &at
	m.tokens[tokenID] = tok
	return nil
}

func (m *memStore) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	m.categories[c.ID] = c
	return c, nil
}

func (m *memStore) GetCategory(_ context.Context, id int64) (core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return core.Category{}, fmt.Errorf("get category: %w", core.ErrNotFound)
	}
	return c, nil
}

func (m *memStore) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Category
	for _, c := range m.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) UpdateCategory(_ context.Context, c core.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[c.ID]; !ok {
		return core.ErrNotFound
	}
	m.categories[c.ID] = c
	return nil
}

func (m *memStore) DeleteCategory(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.categories, id)
	for tid, t := range m.transactions {
		if t.CategoryID == id {
			delete(m.transactions, tid)
		}
	}
	return nil
}

func (m *memStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id()
	if c, ok := m.categories[t.CategoryID]; ok {
		name := c.Name
		t.CategoryName = &name
	}
	m.transactions[t.ID] = t
	return t, nil
}

func (m *memStore) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", core.ErrNotFound)
	}
	return t, nil
}

func (m *memStore) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Transaction
	for _, t := range m.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *memStore) ListTransactionsInRange(ctx context.Context, userID string, from, to time.Time, limit int) ([]core.Transaction, error) {
	all, _ := m.ListTransactions(ctx, userID)
	m.mu.Lock()
	m.rangeCalls++
	m.lastLimit = limit
	m.mu.Unlock()

	var out []core.Transaction
	for _, t := range all {
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) UpdateTransaction(_ context.Context, t core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[t.ID]; !ok {
		return core.ErrNotFound
	}
	m.transactions[t.ID] = t
	return nil
}

func (m *memStore) DeleteTransaction(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.transactions, id)
	return nil
}

// captureDispatcher records password reset notifications.
type captureDispatcher struct {
	sent []notify.PasswordReset
	err  error
}

func (d *captureDispatcher) DispatchPasswordReset(_ context.Context, msg notify.PasswordReset) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msg)
	return nil
}
