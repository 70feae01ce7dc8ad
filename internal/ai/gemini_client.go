package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// DefaultGeminiModel is the model used when none is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiClient adapts the Gemini API (via google.golang.org/genai) to Runtime.
type GeminiClient struct {
	models *genai.Models
	retry  retryPolicy
}

// NewGeminiClient builds a client from cfg; an API key is required.
func NewGeminiClient(cfg RuntimeConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.timeout()},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(cfg.BaseURL, "/") + "/"}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{models: client.Models, retry: cfg.policy(geminiRetry)}, nil
}

// geminiRequest splits req into genai contents and generation config.
// System messages become the system instruction.
func geminiRequest(req GenerateRequest) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	if len(req.Messages) == 0 {
		return nil, nil, errors.New("messages cannot be empty")
	}
	conf := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		conf.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		conf.MaxOutputTokens = int32(req.MaxTokens)
	}
	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		conf.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if len(contents) == 0 {
		return nil, nil, errors.New("messages cannot be empty")
	}
	return contents, conf, nil
}

func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	contents, conf, err := geminiRequest(req)
	if err != nil {
		return nil, err
	}
	var resp *genai.GenerateContentResponse
	err = c.retry.do(ctx, func() error {
		r, err := c.models.GenerateContent(ctx, req.Model, contents, conf)
		if err != nil {
			return fromGenAIError(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &GenerateResponse{
		ID:        uuid.NewString(),
		Choices:   []Choice{{Message: Message{Role: RoleAssistant, Content: resp.Text()}}},
		RequestID: "gemini_" + uuid.NewString(),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// GenerateStream forwards each streamed chunk's text to onDelta.
func (c *GeminiClient) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	if req.Model == "" {
		return errors.New("model cannot be empty")
	}
	contents, conf, err := geminiRequest(req)
	if err != nil {
		return err
	}
	for chunk, err := range c.models.GenerateContentStream(ctx, req.Model, contents, conf) {
		if err != nil {
			return fromGenAIError(err)
		}
		if s := chunk.Text(); s != "" {
			onDelta(s)
		}
	}
	return ctx.Err()
}

// fromGenAIError maps genai API errors onto this package's typed errors.
func fromGenAIError(err error) error {
	var ge genai.APIError
	if !errors.As(err, &ge) {
		return fmt.Errorf("gemini request: %w", err)
	}
	return classify(&APIError{StatusCode: ge.Code, Code: strings.ToLower(ge.Status), Message: ge.Message}, nil)
}
