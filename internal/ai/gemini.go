package ai

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiAPIVersion = "v1beta"

// Gemini generates content through the Gemini API.
type Gemini struct {
	opts   Options
	client *genai.Client
}

// NewGemini creates the SDK client when a key and model are present. An
// unconfigured Gemini is still returned so callers can report 503.
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	g := &Gemini{opts: opts}
	if !g.Configured() {
		return g, nil
	}

	baseURL, version := splitGeminiBase(opts.BaseURL)
	cfg := &genai.ClientConfig{
		APIKey:      opts.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL, APIVersion: version},
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *Gemini) Configured() bool {
	return strings.TrimSpace(g.opts.APIKey) != "" && strings.TrimSpace(g.opts.Model) != ""
}

func (g *Gemini) Generate(ctx context.Context, messages []Message) (string, error) {
	if g.client == nil {
		return "", ErrNotConfigured
	}

	system, contents := toGeminiContents(messages)
	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(float32(g.opts.Temperature)),
	}
	if g.opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(g.opts.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, strings.TrimSpace(g.opts.Model), contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %v", ErrProvider, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty response from model", ErrProvider)
	}
	return text, nil
}

// toGeminiContents joins system messages into one instruction and maps the
// rest to user or model turns.
func toGeminiContents(messages []Message) (*genai.Content, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		if strings.EqualFold(m.Role, RoleSystem) {
			system = append(system, m.Content)
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, geminiRole(m.Role)))
	}
	if len(contents) == 0 {
		contents = append(contents, genai.NewContentFromText("", genai.RoleUser))
	}

	var instruction *genai.Content
	if len(system) > 0 {
		instruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}
	return instruction, contents
}

func geminiRole(role string) genai.Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAssistant, "model":
		return genai.RoleModel
	default:
		return genai.RoleUser
	}
}

// splitGeminiBase turns "https://host/v1beta" into the SDK's separate base
// URL and API version.
func splitGeminiBase(base string) (string, string) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "", defaultGeminiAPIVersion
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + "/", defaultGeminiAPIVersion
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segments[len(segments)-1]
	if strings.HasPrefix(last, "v1") {
		u.Path = strings.Join(segments[:len(segments)-1], "/")
		return strings.TrimRight(u.String(), "/") + "/", last
	}
	return base + "/", defaultGeminiAPIVersion
}
