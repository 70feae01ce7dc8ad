package ai

import (
	"context"
	"errors"
	"strings"
)

// Runtime is implemented by every text-generation backend (Gemini, OpenRouter,
// a local Ollama). The assistant only talks to this interface.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// StreamRuntime is an optional extension that supports streaming output.
// Implementors invoke onDelta with each partial content chunk.
type StreamRuntime interface {
	GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderGemini     = "gemini"
	ProviderGoogle     = "google"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderLocal      = "local"
)

// DefaultProvider is used when neither flags nor config name one.
const DefaultProvider = ProviderGemini

// ErrMissingAPIKey is returned by hosted runtimes constructed without a key.
var ErrMissingAPIKey = errors.New("api key is missing")

// NormalizeProvider folds aliases onto the registered provider names.
func NormalizeProvider(name string) string {
	switch p := strings.ToLower(strings.TrimSpace(name)); p {
	case "":
		return DefaultProvider
	case ProviderGoogle:
		return ProviderGemini
	case ProviderLocal:
		return ProviderOllama
	default:
		return p
	}
}

// Message is one turn of a chat-style request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles understood by every runtime.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type GenerateRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// UserPrompt builds a single-turn request.
func UserPrompt(model, prompt string, maxTokens int, temperature float64) GenerateRequest {
	return GenerateRequest{
		Model:       model,
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Choice struct {
	Message Message `json:"message"`
}

type GenerateResponse struct {
	ID        string   `json:"id"`
	Choices   []Choice `json:"choices"`
	Usage     Usage    `json:"usage"`
	RequestID string   `json:"-"`
}

// Text returns the first choice's content, or "" when there is none.
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}
