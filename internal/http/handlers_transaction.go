package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/recap"

	"github.com/shopspring/decimal"
)

type transactionRequest struct {
	Description *string         `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        *Timestamp      `json:"date"`
	IsIncome    bool            `json:"isIncome"`
	UserID      string          `json:"userId"`
	CategoryID  int64           `json:"categoryId"`
}

func (req transactionRequest) toTransaction(id int64, owner string) core.Transaction {
	t := core.Transaction{
		ID:          id,
		Description: sanitizePtr(req.Description),
		Amount:      req.Amount,
		IsIncome:    req.IsIncome,
		UserID:      owner,
		CategoryID:  req.CategoryID,
	}
	if req.Date != nil {
		t.Date = req.Date.Time
	}
	return t
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r, r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := s.transactions.List(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	OK(w, "Transactions retrieved.", txs)
}

// handleRecap returns the recap without the envelope; charting clients read
// it directly.
func (s *Server) handleRecap(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r, r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	period := recap.ParsePeriod(r.URL.Query().Get("period"))

	result, err := s.transactions.Recap(r.Context(), owner, period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Recap served",
		log.FieldUserID, owner,
		log.FieldPeriod, period.String(),
		log.FieldCount, len(result.Data))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r, "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := s.transactions.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, "Transaction retrieved.", t)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := requireOwner(r, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := s.transactions.Create(r.Context(), req.toTransaction(0, owner))
	if err != nil {
		writeError(w, r, err)
		return
	}
	Created(w, "Transaction created.", t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := requireOwner(r, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := s.transactions.Update(r.Context(), owner, req.toTransaction(id, owner))
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, "Transaction updated.", t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r, "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.transactions.Delete(r.Context(), owner, id); err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, "Transaction deleted.", nil)
}
