package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

// ErrQuotaExhausted marks a provider-side rate limit or quota rejection.
// Retrying these within a run only burns more quota, so the orchestrator
// falls back immediately instead.
var ErrQuotaExhausted = errors.New("insight: model quota exhausted")

var ErrEmptyResponse = errors.New("insight: empty model response")

// Generator produces a JSON document for a prompt. The orchestrator only
// depends on this interface; tests substitute a stub.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error)
	Model() string
}

// GeminiGenerator wraps the official genai client. The API key is read by
// the client from GEMINI_API_KEY.
type GeminiGenerator struct {
	cli   *genai.Client
	model string
}

func NewGeminiGenerator(ctx context.Context, model string) (*GeminiGenerator, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiGenerator{cli: cli, model: model}, nil
}

func (g *GeminiGenerator) Model() string { return g.model }

func (g *GeminiGenerator) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		if isQuotaMessage(err.Error()) {
			return nil, fmt.Errorf("%w: %s", ErrQuotaExhausted, err.Error())
		}
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}
	text := stripFences(resp.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(text), nil
}

// stripFences removes a markdown code fence the model sometimes wraps
// around JSON output despite the response MIME type.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isQuotaMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "resource_exhausted") ||
		strings.Contains(lower, "429")
}

// IsQuotaError reports whether err indicates provider quota exhaustion,
// either tagged by this package or raw from the client.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExhausted) {
		return true
	}
	return isQuotaMessage(err.Error())
}
