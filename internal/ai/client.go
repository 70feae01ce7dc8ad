package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// Client talks to the OpenRouter chat-completions API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	retry      retryPolicy
}

// NewOpenRouterClient builds a client from cfg; an API key is required.
func NewOpenRouterClient(cfg RuntimeConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter: %w", ErrMissingAPIKey)
	}
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.timeout()},
		apiKey:     cfg.APIKey,
		baseURL:    openRouterBaseURL,
		retry:      cfg.policy(openRouterRetry),
	}
	if cfg.BaseURL != "" {
		c.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return c, nil
}

func (c *Client) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://github.com/KaramelBytes/leadpilot-cli")
	req.Header.Set("X-Title", "LeadPilot CLI")
	return req, nil
}

func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var out GenerateResponse
	err = c.retry.do(ctx, func() error {
		httpReq, err := c.newRequest(ctx, payload)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return decodeOpenRouterError(resp)
		}
		out = GenerateResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		out.RequestID = extractRequestID(resp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateStream streams content using OpenRouter's SSE-compatible stream.
// Streams are not retried once the response has started.
func (c *Client) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	if req.Model == "" {
		return errors.New("model cannot be empty")
	}
	payload := map[string]any{
		"model":    req.Model,
		"messages": req.Messages,
		"stream":   true,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := c.newRequest(ctx, b)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeOpenRouterError(resp)
	}

	type streamDelta struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var d streamDelta
		if err := json.Unmarshal([]byte(data), &d); err == nil && len(d.Choices) > 0 {
			if s := d.Choices[0].Delta.Content; s != "" {
				onDelta(s)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read: %w", err)
	}
	return nil
}

func decodeOpenRouterError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw, RequestID: extractRequestID(resp)}
	src := raw
	if nested, ok := raw["error"].(map[string]any); ok {
		src = nested
	}
	if msg, ok := src["message"].(string); ok {
		apiErr.Message = msg
	}
	switch code := src["code"].(type) {
	case string:
		apiErr.Code = code
	case float64:
		apiErr.Code = fmt.Sprintf("%d", int(code))
	}
	return classify(apiErr, resp.Header)
}

// extractRequestID pulls a best-effort request ID from common headers.
func extractRequestID(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	for _, k := range []string{"X-Request-Id", "OpenAI-Request-ID", "Openrouter-Request-ID", "X-Amzn-Requestid"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}
