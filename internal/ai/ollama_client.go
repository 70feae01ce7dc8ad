package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaHost = "http://127.0.0.1:11434"

// OllamaClient is a minimal HTTP client for a local Ollama runtime.
type OllamaClient struct {
	httpClient *http.Client
	host       string
	retry      retryPolicy
}

// NewOllamaClient targets cfg.BaseURL, or the default local host.
func NewOllamaClient(cfg RuntimeConfig) *OllamaClient {
	host := strings.TrimRight(cfg.BaseURL, "/")
	if host == "" {
		host = defaultOllamaHost
	}
	return &OllamaClient{
		httpClient: &http.Client{Timeout: cfg.timeout()},
		host:       host,
		retry:      cfg.policy(ollamaRetry),
	}
}

// Structures aligned with Ollama /api/chat
type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

func (c *OllamaClient) payload(req GenerateRequest, stream bool) ([]byte, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	oreq := ollamaChatRequest{
		Model:    req.Model,
		Messages: make([]ollamaChatMessage, len(req.Messages)),
		Stream:   stream,
		Options:  map[string]any{},
	}
	for i, m := range req.Messages {
		oreq.Messages[i] = ollamaChatMessage(m)
	}
	if req.Temperature > 0 {
		oreq.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		oreq.Options["num_predict"] = req.MaxTokens
	}
	b, err := json.Marshal(oreq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return b, nil
}

func (c *OllamaClient) post(ctx context.Context, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &UnreachableError{Host: c.host, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeOllamaError(resp)
	}
	return resp, nil
}

// Generate sends a chat request to Ollama and maps the response to GenerateResponse.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	body, err := c.payload(req, false)
	if err != nil {
		return nil, err
	}
	var out GenerateResponse
	err = c.retry.do(ctx, func() error {
		resp, err := c.post(ctx, body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		var oresp ollamaChatResponse
		if err := json.NewDecoder(resp.Body).Decode(&oresp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		out = GenerateResponse{
			Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: oresp.Message.Content}}},
			Usage: Usage{
				PromptTokens:     oresp.PromptEvalCount,
				CompletionTokens: oresp.EvalCount,
				TotalTokens:      oresp.PromptEvalCount + oresp.EvalCount,
			},
			RequestID: fmt.Sprintf("ollama_%d", time.Now().UnixNano()),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateStream streams partial deltas from Ollama's NDJSON chat stream.
func (c *OllamaClient) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	body, err := c.payload(req, true)
	if err != nil {
		return err
	}
	resp, err := c.post(ctx, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var oresp ollamaChatResponse
		if err := dec.Decode(&oresp); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode stream: %w", err)
		}
		if msg := oresp.Message.Content; msg != "" {
			onDelta(msg)
		}
		if oresp.Done {
			return nil
		}
	}
}

func decodeOllamaError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw}
	if msg, ok := raw["error"].(string); ok {
		apiErr.Message = msg
	} else if msg, ok := raw["message"].(string); ok {
		apiErr.Message = msg
	}
	// Ollama answers 404 only for models that were never pulled.
	if resp.StatusCode == http.StatusNotFound {
		return &ModelNotFoundError{APIError: apiErr}
	}
	return classify(apiErr, resp.Header)
}
