package http

import (
	"net/http"

	"fintrack/internal/services"
)

type (
	insightRequest struct {
		UserID string     `json:"userId"`
		From   *Timestamp `json:"from"`
		To     *Timestamp `json:"to"`
	}

	chatRequest struct {
		UserID   string `json:"userId"`
		Question string `json:"question"`
	}

	recommendationRequest struct {
		UserID string `json:"userId"`
		Focus  string `json:"focus"`
	}

	digestRequest struct {
		UserID        string     `json:"userId"`
		Period        string     `json:"period"`
		ReferenceDate *Timestamp `json:"referenceDate"`
	}

	aiMessageResponse struct {
		Content string `json:"content"`
	}
)

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	var req insightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := requireOwner(r, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	answer, err := s.ai.Insights(r.Context(), services.InsightRequest{
		UserID: owner,
		From:   timePtr(req.From),
		To:     timePtr(req.To),
	})
	s.writeAI(w, r, "Insights generated.", answer, err)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := requireOwner(r, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	answer, err := s.ai.Chat(r.Context(), services.ChatRequest{UserID: owner, Question: sanitizeInput(req.Question)})
	s.writeAI(w, r, "Answer generated.", answer, err)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := requireOwner(r, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	answer, err := s.ai.Recommendations(r.Context(), services.RecommendationRequest{UserID: owner, Focus: sanitizeInput(req.Focus)})
	s.writeAI(w, r, "Recommendations generated.", answer, err)
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	var req digestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := requireOwner(r, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Period == "" {
		req.Period = string(services.DigestDaily)
	}
	period, err := services.ParseDigestPeriod(req.Period)
	if err != nil {
		writeError(w, r, err)
		return
	}

	answer, err := s.ai.Digest(r.Context(), services.DigestRequest{
		UserID:        owner,
		Period:        period,
		ReferenceDate: timePtr(req.ReferenceDate),
	})
	s.writeAI(w, r, "Digest generated.", answer, err)
}

func (s *Server) writeAI(w http.ResponseWriter, r *http.Request, message, answer string, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, message, aiMessageResponse{Content: answer})
}
