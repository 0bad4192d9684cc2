// Package ai sends chat style prompts to an LLM provider. Two transports
// exist: Gemini through the genai SDK and any OpenAI compatible
// chat/completions endpoint.
package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrNotConfigured means the provider is missing a key, model or URL.
	ErrNotConfigured = errors.New("ai provider not configured")
	// ErrProvider wraps transport failures, non-2xx answers and empty replies.
	ErrProvider = errors.New("ai provider failure")
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
	Configured() bool
}

type Options struct {
	Provider        string
	BaseURL         string
	APIKey          string
	Model           string
	APIKeyHeader    string
	Organization    string
	UseBearerPrefix bool
	Temperature     float64
	MaxTokens       int
	HTTPClient      *http.Client
}

// IsGemini reports whether provider selects the Gemini transport. An empty
// provider means Gemini.
func IsGemini(provider string) bool {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "gemini", "google", "googleai", "google-ai", "google_gemini":
		return true
	}
	return false
}

// New builds the generator for opts.Provider.
func New(ctx context.Context, opts Options) (Generator, error) {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if IsGemini(opts.Provider) {
		return NewGemini(ctx, opts)
	}
	return NewOpenAI(opts), nil
}
