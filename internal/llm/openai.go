package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OpenAIClient implements Client for any OpenAI-compatible chat completions API.
type OpenAIClient struct {
	endpoint   string
	apiKey     string
	config     *Config
	httpClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature"`
	TopP        float32       `json:"top_p,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient builds a client for config.BaseURL. The chat completions path
// is appended unless the base URL already ends with it.
func NewOpenAIClient(config *Config, apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, &OracleError{Provider: ProviderOpenAI, Message: "API key is required"}
	}
	if config == nil {
		config = DefaultConfig()
	}
	base := strings.TrimRight(config.BaseURL, "/")
	if base == "" {
		base = DefaultConfig().BaseURL
	}
	endpoint := base
	if !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += "/chat/completions"
	}
	return &OpenAIClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		config:     config,
		httpClient: &http.Client{},
	}, nil
}

// Complete posts the system and user messages and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string, tier ModelTier) (string, error) {
	model := c.config.GetModel(tier)
	if model == "" {
		return "", &OracleError{Provider: ProviderOpenAI, Message: fmt.Sprintf("no model configured for tier %s", tier)}
	}

	messages := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
		TopP:        c.config.TopP,
	})
	if err != nil {
		return "", &OracleError{Provider: ProviderOpenAI, Message: "failed to marshal request", Cause: err}
	}

	ctx, cancel := withTimeout(ctx, c.config)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &OracleError{Provider: ProviderOpenAI, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &OracleError{Provider: ProviderOpenAI, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &OracleError{
			Provider: ProviderOpenAI,
			Message:  fmt.Sprintf("HTTP %s: %s", resp.Status, strings.TrimSpace(string(payload))),
		}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &OracleError{Provider: ProviderOpenAI, Message: "failed to decode response", Cause: err}
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", &OracleError{Provider: ProviderOpenAI, Message: decoded.Error.Message}
	}
	if len(decoded.Choices) == 0 {
		return "", &OracleError{Provider: ProviderOpenAI, Message: "no choices in response"}
	}
	return decoded.Choices[0].Message.Content, nil
}

// GetModel returns the model name for a tier
func (c *OpenAIClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the HTTP client holds no per-client resources.
func (c *OpenAIClient) Close() error {
	return nil
}
