package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/stock-research-agent/internal/advice"
	"github.com/jonathan/stock-research-agent/internal/crawling"
	"github.com/jonathan/stock-research-agent/internal/extraction"
	"github.com/jonathan/stock-research-agent/internal/ingestion"
	"github.com/jonathan/stock-research-agent/internal/llm"
	"github.com/jonathan/stock-research-agent/internal/pipeline/steps"
	"github.com/jonathan/stock-research-agent/internal/prompts"
	"github.com/jonathan/stock-research-agent/internal/ranking"
	"github.com/jonathan/stock-research-agent/internal/rendering"
	"github.com/jonathan/stock-research-agent/internal/search"
	"github.com/jonathan/stock-research-agent/internal/store"
	"github.com/jonathan/stock-research-agent/internal/types"
)

// MockLLMClient implements llm.Client for testing. Replies are chosen by tier:
// lite is evaluation, standard is extraction, advanced is synthesis.
type MockLLMClient struct {
	mu      sync.Mutex
	Replies map[llm.ModelTier]string
	Errors  map[llm.ModelTier]error
	Calls   map[llm.ModelTier]int
	Systems map[llm.ModelTier]string
}

func newMockClient() *MockLLMClient {
	return &MockLLMClient{
		Replies: map[llm.ModelTier]string{},
		Errors:  map[llm.ModelTier]error{},
		Calls:   map[llm.ModelTier]int{},
		Systems: map[llm.ModelTier]string{},
	}
}

func (m *MockLLMClient) Complete(_ context.Context, systemPrompt, _ string, tier llm.ModelTier) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[tier]++
	m.Systems[tier] = systemPrompt
	if err := m.Errors[tier]; err != nil {
		return "", err
	}
	return m.Replies[tier], nil
}

func (m *MockLLMClient) GetModel(_ llm.ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

func (m *MockLLMClient) calls(tier llm.ModelTier) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[tier]
}

// newPageServer serves two article pages and a 404.
func newPageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	page := func(title, body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = fmt.Fprintf(w, `<html><head><title>%s</title></head><body><article><p>%s</p></article></body></html>`, title, body)
		}
	}
	mux.HandleFunc("/good1", page("平安银行业绩快报", "平安银行2023年净利润同比增长2.1%。"))
	mux.HandleFunc("/good2", page("银行板块点评", "银行板块估值处于历史低位。"))
	mux.HandleFunc("/missing", http.NotFound)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

type testEnv struct {
	agent    *Agent
	client   *MockLLMClient
	server   *httptest.Server
	searches atomic.Int32
	outDir   string
}

// newTestEnv builds an Agent whose provider returns hits(server) for every query.
func newTestEnv(t *testing.T, hits func(server *httptest.Server, query string) []types.SearchHit) *testEnv {
	t.Helper()
	env := &testEnv{client: newMockClient(), server: newPageServer(t)}

	provider := search.ProviderFunc{
		ProviderName: "stub",
		Fn: func(_ context.Context, query string, _ int) ([]types.SearchHit, error) {
			env.searches.Add(1)
			return hits(env.server, query), nil
		},
	}

	dir := t.TempDir()
	env.outDir = filepath.Join(dir, "results")
	st := store.New(filepath.Join(dir, "data"), env.outDir)

	runs := 0
	env.agent = &Agent{
		Aggregator:  search.NewAggregator(provider, 10, 0, nil),
		Fetcher:     crawling.NewBoundedFetcher(ingestion.NewPageFetcher(nil, false, 2*time.Second, nil), 2, st, nil),
		Evaluator:   ranking.NewEvaluator(env.client, nil),
		Extractor:   extraction.NewExtractor(env.client, nil),
		Advisor:     advice.NewSynthesizer(env.client, advice.ModeInvestment, nil),
		Analyst:     advice.NewSynthesizer(env.client, advice.ModeMarket, nil),
		Reports:     st,
		RiskProfile: types.RiskLow,
		MaxURLs:     5,
		MinScore:    3,
		NewRunID: func() string {
			runs++
			return fmt.Sprintf("run-%d", runs)
		},
		Now: func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) },
	}

	env.client.Replies[llm.TierStandard] = `{"关键要点": "业绩稳定"}`
	env.client.Replies[llm.TierAdvanced] = "建议长期持有"
	return env
}

func fullHits(server *httptest.Server, _ string) []types.SearchHit {
	return []types.SearchHit{
		{URL: server.URL + "/good1", Title: "平安银行业绩快报", Abstract: "净利润增长"},
		{URL: server.URL + "/missing", Title: "已删除页面", Abstract: "研报"},
		{URL: server.URL + "/good2", Title: "银行板块点评", Abstract: "估值低位"},
		{URL: server.URL + "/noise", Title: "娱乐新闻", Abstract: "无关"},
	}
}

func evaluationReply(server *httptest.Server) string {
	return "```json\n[" +
		fmt.Sprintf(`{"url":"%s/good1","score":9,"reason":"财务数据"},`, server.URL) +
		fmt.Sprintf(`{"url":"%s/missing","score":8,"reason":"研报"},`, server.URL) +
		fmt.Sprintf(`{"url":"%s/good2","score":6,"reason":"板块分析"},`, server.URL) +
		fmt.Sprintf(`{"url":"%s/noise","score":1,"reason":"无关"}`, server.URL) +
		"]\n```"
}

func TestAnalyzeStock_EndToEnd(t *testing.T) {
	env := newTestEnv(t, fullHits)
	env.client.Replies[llm.TierLite] = evaluationReply(env.server)

	var events []ProgressEvent
	subject := types.Subject{Code: "000001", Name: "平安银行"}
	res, err := env.agent.AnalyzeStock(context.Background(), subject, RunOptions{
		OnProgress: func(e ProgressEvent) { events = append(events, e) },
	})
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, "平安银行(000001)", res.Subject)
	assert.Equal(t, "low", res.RiskProfile)
	assert.Equal(t, "建议长期持有", res.Text)
	// noise is below the minimum score and missing fails to fetch
	assert.Equal(t, []string{env.server.URL + "/good1", env.server.URL + "/good2"}, res.SourceURLs)

	assert.Equal(t, 5, int(env.searches.Load()), "one provider call per derived query")
	assert.Equal(t, 1, env.client.calls(llm.TierLite))
	assert.Equal(t, 2, env.client.calls(llm.TierStandard))
	assert.Equal(t, 1, env.client.calls(llm.TierAdvanced))
	assert.Equal(t, prompts.MustGet("advice.json", "investment-system"), env.client.Systems[llm.TierAdvanced])

	require.NotEmpty(t, res.OutputFile)
	assert.Equal(t, "000001_advice_20240501_093000.txt", filepath.Base(res.OutputFile))
	written, err := os.ReadFile(res.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(written), "建议长期持有")
	assert.Contains(t, string(written), "run-1")
	assert.Contains(t, string(written), env.server.URL+"/good2")

	var seen []string
	for _, e := range events {
		assert.Equal(t, "run-1", e.RunID)
		assert.NotEmpty(t, e.Category)
		if len(seen) == 0 || seen[len(seen)-1] != e.Step {
			seen = append(seen, e.Step)
		}
	}
	assert.Equal(t, steps.Ordered(), seen)
}

func TestAnalyzeStock_RiskOverride(t *testing.T) {
	env := newTestEnv(t, fullHits)
	env.client.Replies[llm.TierLite] = evaluationReply(env.server)

	res, err := env.agent.AnalyzeStock(context.Background(), types.Subject{Code: "000001"}, RunOptions{RiskProfile: types.RiskHigh})
	require.NoError(t, err)
	assert.Equal(t, "high", res.RiskProfile)
}

func TestAnalyzeStock_UnparseableEvaluationKeepsEverything(t *testing.T) {
	env := newTestEnv(t, fullHits)
	env.client.Replies[llm.TierLite] = "抱歉，我无法评分"

	res, err := env.agent.AnalyzeStock(context.Background(), types.Subject{Code: "000001"}, RunOptions{})
	require.NoError(t, err)
	// every hit falls back to the neutral score; only the two live pages survive fetching
	assert.Equal(t, []string{env.server.URL + "/good1", env.server.URL + "/good2"}, res.SourceURLs)
	assert.Equal(t, 2, env.client.calls(llm.TierStandard))
}

func TestAnalyzeStock_NoHits(t *testing.T) {
	env := newTestEnv(t, func(*httptest.Server, string) []types.SearchHit { return nil })

	res, err := env.agent.AnalyzeStock(context.Background(), types.Subject{Code: "000001"}, RunOptions{})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoURLs)
	assert.True(t, IsUserFacing(err))

	var analysisErr *AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, steps.StepSearch, analysisErr.Step)
	assert.Zero(t, env.client.calls(llm.TierLite))
}

func TestAnalyzeStock_EverythingBelowMinScore(t *testing.T) {
	env := newTestEnv(t, fullHits)
	env.client.Replies[llm.TierLite] = fmt.Sprintf(`[{"url":"%s/good1","score":1,"reason":"旧闻"}]`, env.server.URL)

	_, err := env.agent.AnalyzeStock(context.Background(), types.Subject{Code: "000001"}, RunOptions{})
	assert.ErrorIs(t, err, ErrNoURLs)
	assert.Zero(t, env.client.calls(llm.TierStandard))
}

func TestAnalyzeStock_TopNNarrowsBelowMaxURLs(t *testing.T) {
	env := newTestEnv(t, fullHits)
	env.client.Replies[llm.TierLite] = evaluationReply(env.server)
	env.agent.TopN = 1

	res, err := env.agent.AnalyzeStock(context.Background(), types.Subject{Code: "000001"}, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{env.server.URL + "/good1"}, res.SourceURLs)
	assert.Equal(t, 1, env.client.calls(llm.TierStandard))
}

func TestAnalyzeStock_MaxURLsCapsTopN(t *testing.T) {
	env := newTestEnv(t, fullHits)
	env.client.Replies[llm.TierLite] = evaluationReply(env.server)
	env.agent.TopN = 10

	// good1 and missing are the top two; missing fails to fetch
	res, err := env.agent.AnalyzeStock(context.Background(), types.Subject{Code: "000001"}, RunOptions{MaxURLs: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{env.server.URL + "/good1"}, res.SourceURLs)
}

func TestAnalyzeStock_ZeroMinScoreKeepsUnscoredHits(t *testing.T) {
	env := newTestEnv(t, fullHits)
	env.client.Replies[llm.TierLite] = fmt.Sprintf(`[{"url":"%s/good1","score":9,"reason":"财务数据"}]`, env.server.URL)
	env.agent.MinScore = 0

	res, err := env.agent.AnalyzeStock(context.Background(), types.Subject{Code: "000001"}, RunOptions{})
	require.NoError(t, err)
	// good2 was never scored and still reaches fetching
	assert.Equal(t, []string{env.server.URL + "/good1", env.server.URL + "/good2"}, res.SourceURLs)
}

func TestAnalyzeStock_AllFetchesFail(t *testing.T) {
	env := newTestEnv(t, func(server *httptest.Server, _ string) []types.SearchHit {
		return []types.SearchHit{{URL: server.URL + "/missing", Title: "已删除", Abstract: "研报"}}
	})
	env.client.Replies[llm.TierLite] = fmt.Sprintf(`[{"url":"%s/missing","score":9,"reason":"研报"}]`, env.server.URL)

	_, err := env.agent.AnalyzeStock(context.Background(), types.Subject{Code: "000001"}, RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoDocuments)
	assert.Equal(t, ErrNoDocuments.Error(), "爬取网页内容失败，请检查网络连接或URL有效性。")
	assert.Zero(t, env.client.calls(llm.TierStandard))
	assert.Zero(t, env.client.calls(llm.TierAdvanced))
}

func TestAnalyzeStock_SynthesisFailureStillWritesReport(t *testing.T) {
	env := newTestEnv(t, fullHits)
	env.client.Replies[llm.TierLite] = evaluationReply(env.server)
	env.client.Errors[llm.TierAdvanced] = errors.New("quota exceeded")

	res, err := env.agent.AnalyzeStock(context.Background(), types.Subject{Code: "000001"}, RunOptions{})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "quota exceeded")
	assert.FileExists(t, res.OutputFile)
}

func TestAnalyzeMarket_URLOnlyHitsSkipEvaluation(t *testing.T) {
	env := newTestEnv(t, func(server *httptest.Server, _ string) []types.SearchHit {
		return []types.SearchHit{
			{URL: server.URL + "/good1"},
			{URL: server.URL + "/good2"},
			{URL: server.URL + "/missing"},
		}
	})
	env.agent.MaxURLs = 2

	res, err := env.agent.AnalyzeMarket(context.Background(), RunOptions{Queries: []string{"A股行情", "央行政策"}})
	require.NoError(t, err)

	assert.Zero(t, env.client.calls(llm.TierLite))
	assert.Equal(t, 2, int(env.searches.Load()))
	assert.Empty(t, res.Subject)
	assert.Equal(t, []string{env.server.URL + "/good1", env.server.URL + "/good2"}, res.SourceURLs)
	assert.Equal(t, prompts.MustGet("advice.json", "market-system"), env.client.Systems[llm.TierAdvanced])
	assert.True(t, strings.HasPrefix(filepath.Base(res.OutputFile), "market_analysis_"))
}

func TestAnalyzeMarket_MetadataHitsAreFiltered(t *testing.T) {
	env := newTestEnv(t, fullHits)
	env.client.Replies[llm.TierLite] = evaluationReply(env.server)

	res, err := env.agent.AnalyzeMarket(context.Background(), RunOptions{Queries: []string{"银行板块"}})
	require.NoError(t, err)
	assert.Equal(t, 1, env.client.calls(llm.TierLite))
	assert.NotContains(t, res.SourceURLs, env.server.URL+"/noise")
}

func TestAnalyzeMarket_DefaultQueries(t *testing.T) {
	env := newTestEnv(t, func(server *httptest.Server, _ string) []types.SearchHit {
		return []types.SearchHit{{URL: server.URL + "/good1"}}
	})

	_, err := env.agent.AnalyzeMarket(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, len(search.DefaultQueries()), int(env.searches.Load()))
}

func TestAnalyzeMarket_NoReportWriter(t *testing.T) {
	env := newTestEnv(t, func(server *httptest.Server, _ string) []types.SearchHit {
		return []types.SearchHit{{URL: server.URL + "/good1"}}
	})
	env.agent.Reports = nil

	res, err := env.agent.AnalyzeMarket(context.Background(), RunOptions{Queries: []string{"q"}})
	require.NoError(t, err)
	assert.Empty(t, res.OutputFile)
}

func TestBatchAnalyze_ContinuesPastFailures(t *testing.T) {
	env := newTestEnv(t, func(server *httptest.Server, query string) []types.SearchHit {
		if strings.Contains(query, "999999") {
			return nil
		}
		return fullHits(server, query)
	})
	env.client.Replies[llm.TierLite] = evaluationReply(env.server)

	subjects := []types.Subject{
		{Code: "999999", Name: "不存在"},
		{Code: "000001", Name: "平安银行"},
	}
	out, err := env.agent.BatchAnalyze(context.Background(), subjects, RunOptions{})
	require.NoError(t, err)

	require.Len(t, out.Summary.Entries, 2)
	assert.Equal(t, rendering.StatusFailed, out.Summary.Entries[0].Status)
	assert.Contains(t, out.Summary.Entries[0].Error, ErrNoURLs.Error())
	assert.Nil(t, out.Results[0])

	assert.Equal(t, rendering.StatusSucceeded, out.Summary.Entries[1].Status)
	assert.Equal(t, "建议长期持有", out.Summary.Entries[1].Excerpt)
	require.NotNil(t, out.Results[1])
	assert.Equal(t, out.Results[1].OutputFile, out.Summary.Entries[1].File)

	assert.Equal(t, 1, out.Summary.Succeeded())
	assert.Equal(t, 1, out.Summary.Failed())
	require.NotEmpty(t, out.OutputFile)
	assert.Equal(t, env.outDir, filepath.Dir(out.OutputFile))
	summary, err := os.ReadFile(out.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "平安银行(000001)")
	assert.Contains(t, string(summary), "不存在(999999)")
}

func TestBatchAnalyze_CancelledContext(t *testing.T) {
	env := newTestEnv(t, fullHits)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := env.agent.BatchAnalyze(ctx, []types.Subject{{Code: "000001"}, {Code: "600519"}}, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Summary.Failed())
	assert.Zero(t, env.searches.Load())
}

func TestBatchAnalyze_Empty(t *testing.T) {
	env := newTestEnv(t, fullHits)
	out, err := env.agent.BatchAnalyze(context.Background(), nil, RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, out.Summary.Entries)
	assert.Equal(t, types.RiskLow, out.Summary.RiskProfile)
}

func TestAnalysisError(t *testing.T) {
	err := &AnalysisError{Step: steps.StepFetch, Message: "every fetch failed", Cause: ErrNoDocuments}
	assert.Contains(t, err.Error(), "fetch")
	assert.Contains(t, err.Error(), "every fetch failed")
	assert.ErrorIs(t, err, ErrNoDocuments)
	assert.False(t, IsUserFacing(errors.New("other")))
}

func TestHasMetadata(t *testing.T) {
	assert.False(t, hasMetadata([]types.SearchHit{{URL: "u"}}))
	assert.True(t, hasMetadata([]types.SearchHit{{URL: "u"}, {URL: "v", Abstract: "a"}}))
	assert.False(t, hasMetadata(nil))
}
