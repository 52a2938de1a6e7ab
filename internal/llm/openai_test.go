package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"你好"}}]}`))
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	client, err := NewOpenAIClient(config, "test-key")
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "系统", "用户", TierLite)
	require.NoError(t, err)
	assert.Equal(t, "你好", text)

	assert.Equal(t, "deepseek-chat", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "系统", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, 4096, got.MaxTokens)
}

func TestOpenAIClient_NoSystemPrompt(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL + "/chat/completions"
	client, err := NewOpenAIClient(config, "k")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "", "hi", TierStandard)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestOpenAIClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	client, err := NewOpenAIClient(config, "k")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u", TierLite)
	require.Error(t, err)
	var oracleErr *OracleError
	require.True(t, errors.As(err, &oracleErr))
	assert.Contains(t, oracleErr.Message, "429")
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	client, err := NewOpenAIClient(config, "k")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u", TierLite)
	assert.Error(t, err)
}

func TestOpenAIClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	config.Timeout = 50 * time.Millisecond
	client, err := NewOpenAIClient(config, "k")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u", TierLite)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), DefaultConfig(), "")
	assert.Error(t, err)

	_, err = NewClient(context.Background(), &Config{Provider: "unknown"}, "k")
	assert.Error(t, err)
}

func TestBuildExtractionPrompt(t *testing.T) {
	schema := ExtractionSchema{
		Name:        "Test",
		Description: "system",
		Fields: []SchemaField{
			{Name: "summary", Type: "\"string\"", Description: "摘要", Required: true},
			{Name: "points", Type: "[\"string\"]"},
		},
	}

	prompt := BuildExtractionPrompt(schema, "标题：测试", "正文内容")
	assert.Contains(t, prompt, "标题：测试")
	assert.Contains(t, prompt, `"summary": "string" (必填) // 摘要,`)
	assert.Contains(t, prompt, `"points": ["string"]`)
	assert.Contains(t, prompt, "正文内容")
	assert.NotContains(t, prompt, "system")
	assert.Equal(t, []string{"summary", "points"}, schema.FieldNames())
}
