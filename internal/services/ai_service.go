package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/ai"
	"fintrack/internal/core"
	"fintrack/internal/insights"
	"fintrack/internal/log"
)

const (
	defaultInsightLimit = 250
	chatLimit           = 400
	digestLimit         = 200
	maxFocusLength      = 120
	minQuestionLength   = 3

	insightWindow        = 60 * 24 * time.Hour
	chatWindow           = 180 * 24 * time.Hour
	recommendationWindow = 120 * 24 * time.Hour
)

const basePersona = "You are the personal finance assistant of the Fintrack app. " +
	"Always answer in plain, easy to follow language, quote specific numbers, and focus on actionable insight. " +
	"When the data is not enough, explain the limitation politely."

const (
	msgNoInsightData        = "There are no transactions in this range yet, so there is no insight to share. Add some transactions first."
	msgOffTopic             = "This question is outside the scope of your personal finance records. Ask about your transactions, income, expenses, savings, or budget."
	msgNoChatData           = "There is no transaction data to base an answer on yet. Add some transactions and try again."
	msgNoRecommendationData = "There is no transaction data to analyze for recommendations yet. Add some transactions first."
)

// DigestPeriod selects the digest window.
type DigestPeriod string

const (
	DigestDaily  DigestPeriod = "daily"
	DigestWeekly DigestPeriod = "weekly"
)

// ParseDigestPeriod accepts daily or weekly in any case.
func ParseDigestPeriod(s string) (DigestPeriod, error) {
	switch DigestPeriod(strings.ToLower(strings.TrimSpace(s))) {
	case DigestDaily:
		return DigestDaily, nil
	case DigestWeekly:
		return DigestWeekly, nil
	}
	return "", fmt.Errorf("%w: period must be daily or weekly", core.ErrInvalidArgument)
}

type (
	InsightRequest struct {
		UserID string
		From   *time.Time
		To     *time.Time
	}

	ChatRequest struct {
		UserID   string
		Question string
	}

	RecommendationRequest struct {
		UserID string
		Focus  string
	}

	DigestRequest struct {
		UserID        string
		Period        DigestPeriod
		ReferenceDate *time.Time
	}
)

// RangeLister loads a user's transactions in a window, newest first.
type RangeLister interface {
	ListTransactionsInRange(ctx context.Context, userID string, from, to time.Time, limit int) ([]core.Transaction, error)
}

// AIService turns a user's ledger into prompt context and asks the generator
// for insights, answers, recommendations, and digests.
type AIService struct {
	store     RangeLister
	generator ai.Generator
	logger    *log.Logger
	now       func() time.Time
}

func NewAIService(store RangeLister, generator ai.Generator, logger *log.Logger) *AIService {
	return &AIService{
		store:     store,
		generator: generator,
		logger:    logger.WithComponent(log.ComponentAI),
		now:       time.Now,
	}
}

func (s *AIService) Insights(ctx context.Context, req InsightRequest) (string, error) {
	end := s.now().UTC()
	if req.To != nil {
		end = req.To.UTC()
	}
	start := end.Add(-insightWindow)
	if req.From != nil {
		start = req.From.UTC()
	}
	if err := insights.EnsureRange(start, end); err != nil {
		return "", err
	}

	txs, err := s.load(ctx, req.UserID, start, end, defaultInsightLimit)
	if err != nil {
		return "", err
	}
	if len(txs) == 0 {
		return msgNoInsightData, nil
	}

	snapshot, err := insights.BuildSnapshot(req.UserID, txs, start, end)
	if err != nil {
		return "", err
	}
	weekly := insights.BuildWeeklyComparison(txs, end)

	prompt := "Write at most three sharp insights from the data below. " +
		"Highlight large changes, project their impact, and keep it short as bullet points. " +
		"Use numbers and percentages where available.\n\n" +
		"Weekly statistics: " + fenced(weekly) + "\n\n" +
		"Transaction snapshot: " + fenced(snapshot)

	return s.generate(ctx, req.UserID, "insights",
		basePersona+" Focus on changes in patterns and financial risk.", prompt)
}

// Chat answers a finance question from the last 180 days of data. Questions
// with no finance keyword get a redirect without touching storage.
func (s *AIService) Chat(ctx context.Context, req ChatRequest) (string, error) {
	question := strings.TrimSpace(req.Question)
	if len(question) < minQuestionLength {
		return "", fmt.Errorf("%w: question must be at least %d characters", core.ErrInvalidArgument, minQuestionLength)
	}
	if !insights.IsFinanceRelated(question) {
		return msgOffTopic, nil
	}

	end := s.now().UTC()
	start := end.Add(-chatWindow)
	txs, err := s.load(ctx, req.UserID, start, end, chatLimit)
	if err != nil {
		return "", err
	}
	if len(txs) == 0 {
		return msgNoChatData, nil
	}

	snapshot, err := insights.BuildSnapshot(req.UserID, txs, start, end)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf("User question: %q.\n", question) +
		"Answer only from the data provided. If the data cannot answer it with certainty, say so and suggest another approach.\n" +
		"Use this data: " + fenced(snapshot)

	return s.generate(ctx, req.UserID, "chat",
		basePersona+" Answer step by step and include the relevant figures.", prompt)
}

func (s *AIService) Recommendations(ctx context.Context, req RecommendationRequest) (string, error) {
	focus := strings.TrimSpace(req.Focus)
	if len(focus) > maxFocusLength {
		return "", fmt.Errorf("%w: focus must be at most %d characters", core.ErrInvalidArgument, maxFocusLength)
	}

	end := s.now().UTC()
	start := end.Add(-recommendationWindow)
	txs, err := s.load(ctx, req.UserID, start, end, defaultInsightLimit)
	if err != nil {
		return "", err
	}
	if len(txs) == 0 {
		return msgNoRecommendationData, nil
	}

	snapshot, err := insights.BuildSnapshot(req.UserID, txs, start, end)
	if err != nil {
		return "", err
	}

	var focusInstruction string
	if focus != "" {
		focusInstruction = fmt.Sprintf(" Prioritize recommendations about %q.", focus)
	}
	prompt := "Give 3-4 specific, actionable financial recommendations. " +
		"Align them with the user's transaction patterns and include an estimated impact where possible." +
		focusInstruction +
		"\n\nReference data: " + fenced(snapshot)

	return s.generate(ctx, req.UserID, "recommendations",
		basePersona+" Keep the recommendations realistic and relevant to the user.", prompt)
}

// Digest summarizes the reference day, or the seven days ending on it.
func (s *AIService) Digest(ctx context.Context, req DigestRequest) (string, error) {
	ref := core.DateOf(s.now())
	if req.ReferenceDate != nil {
		ref = core.DateOf(*req.ReferenceDate)
	}

	start, label := ref, "Daily digest"
	if req.Period == DigestWeekly {
		start, label = ref.AddDays(-6), "Weekly digest"
	}
	end := ref.EndOfDay()
	if err := insights.EnsureRange(start.Time, end); err != nil {
		return "", err
	}

	txs, err := s.load(ctx, req.UserID, start.Time, end, digestLimit)
	if err != nil {
		return "", err
	}
	if len(txs) == 0 {
		return label + ": no transactions were recorded in this period.", nil
	}

	snapshot, err := insights.BuildSnapshot(req.UserID, txs, start.Time, end)
	if err != nil {
		return "", err
	}
	metrics, err := insights.BuildDigestMetrics(txs, start.Time, end)
	if err != nil {
		return "", err
	}

	prompt := label + " in a short, friendly style. Show total spending, income, number of transactions, and the largest transaction. " +
		"End with one sentence of encouragement or a quick tip." +
		"\n\nKey figures: " + fenced(metrics) + "\n" +
		"Detailed data: " + fenced(snapshot)

	return s.generate(ctx, req.UserID, "digest",
		basePersona+" Format the digest in short sentences, at most 3 paragraphs.", prompt)
}

func (s *AIService) load(ctx context.Context, userID string, from, to time.Time, limit int) ([]core.Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId is required", core.ErrInvalidArgument)
	}
	txs, err := s.store.ListTransactionsInRange(ctx, userID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return txs, nil
}

func (s *AIService) generate(ctx context.Context, userID, flow, system, prompt string) (string, error) {
	start := time.Now()
	answer, err := s.generator.Generate(ctx, []ai.Message{
		{Role: ai.RoleSystem, Content: system},
		{Role: ai.RoleUser, Content: prompt},
	})
	if err != nil {
		log.LogError(ctx, "AI generation failed", err, log.ComponentAI, log.OpGenerate, log.ErrorTypeUpstream,
			log.NewFields().WithUser(userID))
		return "", err
	}
	s.logger.InfoContext(ctx, "AI answer generated",
		log.FieldUserID, userID,
		log.FieldOperation, flow,
		log.FieldDuration, time.Since(start).Milliseconds())
	return answer, nil
}

// fenced renders v as a compact JSON code block for the prompt.
func fenced(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte("null")
	}
	return "```json\n" + string(data) + "\n```"
}
