package http

import (
	"net/http"

	"fintrack/internal/core"
)

type categoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IsIncome    bool    `json:"isIncome"`
	UserID      string  `json:"userId"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r, r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	categories, err := s.categories.List(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}
	OK(w, "Categories retrieved.", categories)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
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

	c, err := s.categories.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, "Category retrieved.", c)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := requireOwner(r, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := s.categories.Create(r.Context(), core.Category{
		Name:        sanitizeInput(req.Name),
		Description: sanitizePtr(req.Description),
		IsIncome:    req.IsIncome,
		UserID:      owner,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	Created(w, "Category created.", c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := requireOwner(r, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := s.categories.Update(r.Context(), owner, core.Category{
		ID:          id,
		Name:        sanitizeInput(req.Name),
		Description: sanitizePtr(req.Description),
		IsIncome:    req.IsIncome,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, "Category updated.", c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
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

	if err := s.categories.Delete(r.Context(), owner, id); err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, "Category deleted.", nil)
}
