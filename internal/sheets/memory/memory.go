package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"fintrack/internal/recap"
	"fintrack/internal/sheets"
)

var _ sheets.RecapWriter = (*Store)(nil)

// Store keeps exported rows in memory. It is used for dry runs and tests.
type Store struct {
	mu   sync.Mutex
	rows [][]any
}

func New() *Store {
	return &Store{}
}

// AppendRecap stores the rows and returns a synthetic range reference.
func (s *Store) AppendRecap(_ context.Context, userID string, r recap.Result) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("append recap: user id is required")
	}
	rows := sheets.RecapRows(userID, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		s.rows = append(s.rows, sheets.Header)
	}
	first := len(s.rows) + 1
	s.rows = append(s.rows, rows...)
	return fmt.Sprintf("mem:%d-%d", first, len(s.rows)), nil
}

// Rows returns a copy of everything written so far, header included.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	copy(out, s.rows)
	return out
}
