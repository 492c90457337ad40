package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AnthropicConfig holds Anthropic configuration parameters.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// AnthropicClient implements the Client interface against the Anthropic
// messages API.
type AnthropicClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
}

// NewAnthropicClient constructs an AnthropicClient if the supplied
// configuration is valid.
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5-20250929"
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrDisabled
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		maxTokens:  cfg.MaxTokens,
	}, nil
}

// Enabled reports whether the client can make outbound calls.
func (c *AnthropicClient) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Complete sends a single-turn completion request.
func (c *AnthropicClient) Complete(ctx context.Context, prompt, traceName string) (map[string]any, error) {
	if c == nil || !c.Enabled() {
		return nil, ErrDisabled
	}

	payload := map[string]any{
		"model":      c.model,
		"max_tokens": c.maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic request %s: %w", traceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("anthropic status %d: %v", resp.StatusCode, apiErr)
	}

	var decoded anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Content) == 0 {
		return nil, errors.New("anthropic empty response")
	}

	content := normalizeJSONBlock(decoded.Content[0].Text)
	if content == "" {
		return nil, errors.New("anthropic empty completion")
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("parse completion: %w", err)
	}
	return result, nil
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}
