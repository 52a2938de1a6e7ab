package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jonathan/stock-research-agent/internal/classify"
	"github.com/jonathan/stock-research-agent/internal/llm"
	"github.com/jonathan/stock-research-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	CompleteFunc func(ctx context.Context, systemPrompt, userPrompt string, tier llm.ModelTier) (string, error)

	mu         sync.Mutex
	calls      int
	lastSystem string
	lastUser   string
}

func (m *MockLLMClient) Complete(ctx context.Context, systemPrompt, userPrompt string, tier llm.ModelTier) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemPrompt, userPrompt, tier)
	}
	return `{"摘要": "mock"}`, nil
}

func (m *MockLLMClient) GetModel(_ llm.ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func doc(url, title, content string) types.FetchedDocument {
	return types.FetchedDocument{URL: url, Title: title, Content: content, FetchedAt: time.Now()}
}

func TestExtract_EmptyContentMakesNoCall(t *testing.T) {
	client := &MockLLMClient{}
	x := NewExtractor(client, nil)

	info := x.Extract(context.Background(), doc("https://a.com", "标题", ""))

	assert.Equal(t, 0, client.Calls())
	assert.Nil(t, info.Data)
	assert.Equal(t, ErrEmptyContent, info.Error)
	assert.Equal(t, "https://a.com", info.URL)
	assert.False(t, info.OK())
}

func TestExtract_WhitespaceContentIsSent(t *testing.T) {
	client := &MockLLMClient{}
	x := NewExtractor(client, nil)

	info := x.Extract(context.Background(), doc("https://a.com", "标题", "  \n "))

	assert.Equal(t, 1, client.Calls())
	assert.Empty(t, info.Error)
}

func TestExtract_JSONReply(t *testing.T) {
	client := &MockLLMClient{CompleteFunc: func(context.Context, string, string, llm.ModelTier) (string, error) {
		return "```json\n{\"摘要\": \"央行降准\", \"相关行业\": [\"银行\", \"地产\"]}\n```", nil
	}}

	info := NewExtractor(client, nil).Extract(context.Background(), doc("https://a.com", "新闻", "央行宣布降准0.5个百分点"))

	require.True(t, info.OK())
	data, ok := info.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "央行降准", data["摘要"])
	assert.Equal(t, []any{"银行", "地产"}, data["相关行业"])
}

func TestExtract_RawTextReply(t *testing.T) {
	client := &MockLLMClient{CompleteFunc: func(context.Context, string, string, llm.ModelTier) (string, error) {
		return "  这篇文章主要讲述了降准。 ", nil
	}}

	info := NewExtractor(client, nil).Extract(context.Background(), doc("https://a.com", "新闻", "正文"))

	assert.Equal(t, "这篇文章主要讲述了降准。", info.Data)
	assert.Empty(t, info.Error)
}

func TestExtract_OracleFailure(t *testing.T) {
	client := &MockLLMClient{CompleteFunc: func(context.Context, string, string, llm.ModelTier) (string, error) {
		return "", errors.New("rate limited")
	}}

	info := NewExtractor(client, nil).Extract(context.Background(), doc("https://a.com", "新闻", "正文"))

	assert.Equal(t, 1, client.Calls())
	assert.Nil(t, info.Data)
	assert.Equal(t, "rate limited", info.Error)
}

func TestExtract_PromptFollowsClassification(t *testing.T) {
	tests := []struct {
		name   string
		doc    types.FetchedDocument
		schema llm.ExtractionSchema
		field  string
	}{
		{"generic", doc("https://news.example.com/1", "今日行情", "大盘震荡"), GenericSchema(), "情绪倾向"},
		{"broker", doc("https://research.cmbi.com/r/1", "公司点评", "正文"), BrokerSchema(), "投资评级"},
		{"policy", doc("https://example.com/p", "央行最新政策通知", "正文"), PolicySchema(), "发布机构"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockLLMClient{}
			NewExtractor(client, nil).Extract(context.Background(), tt.doc)

			assert.Equal(t, tt.schema.Description, client.lastSystem)
			assert.Contains(t, client.lastUser, `"`+tt.field+`"`)
			assert.Contains(t, client.lastUser, "标题："+tt.doc.Title)
			assert.Contains(t, client.lastUser, "链接："+tt.doc.URL)
		})
	}
}

func TestExtract_TruncatesContent(t *testing.T) {
	client := &MockLLMClient{}
	x := NewExtractor(client, nil)
	x.ContentBudget = 50

	long := strings.Repeat("字", 80)
	x.Extract(context.Background(), doc("https://a.com", "t", long))

	assert.Contains(t, client.lastUser, strings.Repeat("字", 50)+TruncationMarker)
	assert.NotContains(t, client.lastUser, strings.Repeat("字", 51))
}

func TestExtract_UnknownTitleInPrompt(t *testing.T) {
	client := &MockLLMClient{}

	info := NewExtractor(client, nil).Extract(context.Background(), doc("https://a.com", "", "正文"))

	assert.Contains(t, client.lastUser, "标题："+types.UnknownTitle)
	assert.Equal(t, "", info.Title)
}

func TestExtractAll_PreservesOrderAndNeverDrops(t *testing.T) {
	var inFlight, peak atomic.Int32
	client := &MockLLMClient{CompleteFunc: func(_ context.Context, _ string, user string, _ llm.ModelTier) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		if strings.Contains(user, "https://x.com/3") {
			return "", errors.New("boom")
		}
		return `{"ok": true}`, nil
	}}
	x := NewExtractor(client, nil)
	x.Concurrency = 2

	var docs []types.FetchedDocument
	for i := 0; i < 6; i++ {
		docs = append(docs, doc(fmt.Sprintf("https://x.com/%d", i), fmt.Sprintf("t%d", i), "正文"))
	}
	docs[4].Content = ""

	infos := x.ExtractAll(context.Background(), docs)

	require.Len(t, infos, len(docs))
	for i, info := range infos {
		assert.Equal(t, docs[i].URL, info.URL)
	}
	assert.Equal(t, "boom", infos[3].Error)
	assert.Equal(t, ErrEmptyContent, infos[4].Error)
	assert.True(t, infos[0].OK())
	assert.Equal(t, 5, client.Calls())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestExtractAll_DefaultIsSequential(t *testing.T) {
	var inFlight, peak atomic.Int32
	client := &MockLLMClient{CompleteFunc: func(context.Context, string, string, llm.ModelTier) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		if n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(2 * time.Millisecond)
		return "{}", nil
	}}

	docs := []types.FetchedDocument{doc("a", "a", "x"), doc("b", "b", "y"), doc("c", "c", "z")}
	NewExtractor(client, nil).ExtractAll(context.Background(), docs)

	assert.Equal(t, int32(1), peak.Load())
}

func TestParseReply(t *testing.T) {
	data, ok := ParseReply(`[{"a": 1}]`)
	assert.True(t, ok)
	assert.IsType(t, []any{}, data)

	data, ok = ParseReply(`"just a string"`)
	assert.False(t, ok)
	assert.Equal(t, `"just a string"`, data)

	data, ok = ParseReply("42")
	assert.False(t, ok)
	assert.Equal(t, "42", data)
}

func TestSchemaFor(t *testing.T) {
	assert.Equal(t, "BrokerReport", SchemaFor(classify.BrokerReport).Name)
	assert.Equal(t, "PolicyDocument", SchemaFor(classify.PolicyDocument).Name)
	assert.Equal(t, "GenericDocument", SchemaFor(classify.Generic).Name)
	assert.Equal(t, "GenericDocument", SchemaFor(classify.Label("other")).Name)

	for _, s := range []llm.ExtractionSchema{GenericSchema(), BrokerSchema(), PolicySchema()} {
		assert.NotEmpty(t, s.Description)
		assert.True(t, utf8.ValidString(s.Description))
		assert.NotEmpty(t, s.FieldNames())
	}
}
