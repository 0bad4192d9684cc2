package ai

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// OpenAI talks to any chat/completions compatible endpoint.
type OpenAI struct {
	opts   Options
	client *http.Client
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func NewOpenAI(opts Options) *OpenAI {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAI{opts: opts, client: client}
}

func (o *OpenAI) Configured() bool {
	return strings.TrimSpace(o.opts.APIKey) != "" &&
		strings.TrimSpace(o.opts.BaseURL) != "" &&
		strings.TrimSpace(o.opts.Model) != ""
}

func (o *OpenAI) endpoint() string {
	return strings.TrimRight(strings.TrimSpace(o.opts.BaseURL), "/") + "/chat/completions"
}

func (o *OpenAI) Generate(ctx context.Context, messages []Message) (string, error) {
	if !o.Configured() {
		return "", ErrNotConfigured
	}

	payload := chatRequest{
		Model:       o.opts.Model,
		Messages:    messages,
		Temperature: o.opts.Temperature,
	}
	if o.opts.MaxTokens > 0 {
		payload.MaxTokens = &o.opts.MaxTokens
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	o.applyHeaders(req)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, err := readBody(resp)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}

	var completion chatResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrProvider)
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty response", ErrProvider)
	}
	return content, nil
}

func (o *OpenAI) applyHeaders(req *http.Request) {
	header := strings.TrimSpace(o.opts.APIKeyHeader)
	switch {
	case header != "" && !strings.EqualFold(header, "Authorization"):
		req.Header.Set(header, o.opts.APIKey)
	case o.opts.UseBearerPrefix:
		req.Header.Set("Authorization", "Bearer "+o.opts.APIKey)
	default:
		req.Header.Set("Authorization", o.opts.APIKey)
	}
	if org := strings.TrimSpace(o.opts.Organization); org != "" {
		req.Header.Set("OpenAI-Organization", org)
	}
}

// readBody decodes the response according to its Content-Encoding. The
// transport only decompresses gzip on its own when it set Accept-Encoding
// itself, which is not the case here.
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader
	encoding := resp.Header.Get("Content-Encoding")
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "", "none", "identity":
		reader = resp.Body
	default:
		slog.Warn("Unsupported content encoding", "encoding", encoding)
		reader = resp.Body
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}
