package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/stock-research-agent/internal/advice"
	"github.com/jonathan/stock-research-agent/internal/config"
	"github.com/jonathan/stock-research-agent/internal/crawling"
	"github.com/jonathan/stock-research-agent/internal/extraction"
	"github.com/jonathan/stock-research-agent/internal/fetch"
	"github.com/jonathan/stock-research-agent/internal/ingestion"
	"github.com/jonathan/stock-research-agent/internal/llm"
	"github.com/jonathan/stock-research-agent/internal/ranking"
	"github.com/jonathan/stock-research-agent/internal/search"
	"github.com/jonathan/stock-research-agent/internal/store"
	"github.com/jonathan/stock-research-agent/internal/types"
)

// LLMConfig converts the oracle section of cfg into an llm.Config.
// Gemini keeps its per-tier models unless a gemini model is configured explicitly.
func LLMConfig(cfg *config.Config) *llm.Config {
	var out *llm.Config
	if llm.Provider(cfg.LLM.Provider) == llm.ProviderGemini {
		out = llm.DefaultGeminiConfig()
		if strings.HasPrefix(cfg.LLM.Model, "gemini") {
			out = out.WithAllModels(cfg.LLM.Model)
		}
	} else {
		out = llm.DefaultConfig()
		out.BaseURL = cfg.LLM.BaseURL
		if cfg.LLM.Model != "" {
			out = out.WithAllModels(cfg.LLM.Model)
		}
	}
	if cfg.LLM.MaxTokens > 0 {
		out.MaxTokens = cfg.LLM.MaxTokens
	}
	if cfg.LLM.Temperature > 0 {
		out.Temperature = cfg.LLM.Temperature
	}
	if cfg.LLM.TopP > 0 {
		out.TopP = cfg.LLM.TopP
	}
	if t := cfg.LLM.TimeoutDuration(); t > 0 {
		out.Timeout = t
	}
	return out
}

// NewClient creates the oracle client described by cfg.
func NewClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("oracle API key is required (set %s or llm.api_key)", config.EnvLLMAPIKey)
	}
	return llm.NewClient(ctx, LLMConfig(cfg), cfg.LLM.APIKey)
}

// FetchOptions are the HTTP options shared by page fetches and the Baidu provider.
func FetchOptions(cfg *config.Config) *fetch.Options {
	opts := fetch.DefaultOptions()
	if t := cfg.Crawler.TimeoutDuration(); t > 0 {
		opts.Timeout = t
	}
	if cfg.Crawler.UserAgent != "" {
		opts.UserAgent = cfg.Crawler.UserAgent
	}
	return opts
}

// NewProvider creates the search provider selected by cfg.Search.Method.
func NewProvider(ctx context.Context, cfg *config.Config) (search.Provider, error) {
	method, err := search.ParseMethod(cfg.Search.Method)
	if err != nil {
		return nil, err
	}
	switch method {
	case search.MethodBaidu:
		return search.NewBaiduProvider(cfg.Search.BaiduEndpoint, FetchOptions(cfg)), nil
	default:
		return search.NewGoogleProvider(ctx, cfg.Search.GoogleAPIKey, cfg.Search.GoogleCSEID)
	}
}

// NewPageFetcher creates the cached single-page fetcher used by the crawler.
func NewPageFetcher(cfg *config.Config, logger *zap.Logger) *ingestion.PageFetcher {
	source := fetch.NewCachedFetcher(fetch.HTTPSource{Options: FetchOptions(cfg)}, cfg.Crawler.CacheTTL())
	return ingestion.NewPageFetcher(source, cfg.Crawler.UseBrowser, cfg.Crawler.TimeoutDuration(), logger)
}

// New wires an Agent from cfg around an oracle client and a search provider.
func New(cfg *config.Config, client llm.Client, provider search.Provider, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}

	st := store.New(cfg.DataDir, cfg.OutputDir)
	var snapshotter crawling.Snapshotter
	if cfg.Analysis.SnapshotsEnabled() {
		snapshotter = st
	}

	extractor := extraction.NewExtractor(client, logger.Named("extract"))
	extractor.Concurrency = cfg.Analysis.ExtractConcurrency

	agent := &Agent{
		Aggregator:  search.NewAggregator(provider, cfg.Search.MaxResults, cfg.Search.SleepDuration(), logger.Named("search")),
		Fetcher:     crawling.NewBoundedFetcher(NewPageFetcher(cfg, logger.Named("fetch")), cfg.Crawler.MaxConcurrency, snapshotter, logger.Named("crawl")),
		Evaluator:   ranking.NewEvaluator(client, logger.Named("evaluate")),
		Extractor:   extractor,
		Advisor:     advice.NewSynthesizer(client, advice.ModeInvestment, logger.Named("advice")),
		Analyst:     advice.NewSynthesizer(client, advice.ModeMarket, logger.Named("market")),
		Reports:     st,
		RiskProfile: types.RiskProfile(cfg.Analysis.RiskProfile).Normalize(),
		MaxURLs:     cfg.Analysis.MaxURLs,
		TopN:        cfg.Filter.TopN,
		MinScore:    cfg.Filter.MinScoreValue(),
		Logger:      logger,
	}
	if cfg.Analysis.HistoryEnabled() {
		agent.History = store.NewHistory(cfg.HistoryDir())
	}
	return agent
}
