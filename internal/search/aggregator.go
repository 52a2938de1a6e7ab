package search

import (
	"context"
	"strings"
	"time"

	"github.com/jonathan/stock-research-agent/internal/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultMaxResults is the per-query result cap.
const DefaultMaxResults = 15

// DefaultInterval spaces consecutive provider calls.
const DefaultInterval = 2 * time.Second

// Aggregator fans a query list out to one provider and merges the hits.
type Aggregator struct {
	Provider   Provider
	MaxResults int
	// Interval is the minimum spacing between two provider calls. Zero disables spacing.
	Interval time.Duration
	Logger   *zap.Logger
}

// NewAggregator returns an Aggregator with the given spacing.
func NewAggregator(provider Provider, maxResults int, interval time.Duration, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		Provider:   provider,
		MaxResults: maxResults,
		Interval:   interval,
		Logger:     logger,
	}
}

// Run queries the provider once per query and returns the merged hits with duplicate
// URLs removed (first seen wins). A failing query is logged and contributes nothing.
// Cancelling ctx stops before the next query and returns what was gathered so far.
func (a *Aggregator) Run(ctx context.Context, queries []string) []types.SearchHit {
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxResults := a.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	limit := rate.Inf
	if a.Interval > 0 {
		limit = rate.Every(a.Interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	seen := make(map[string]bool)
	var hits []types.SearchHit
	failed := 0

	for _, query := range queries {
		if err := limiter.Wait(ctx); err != nil {
			logger.Warn("search aborted", zap.Error(err), zap.Int("hits", len(hits)))
			break
		}

		results, err := a.Provider.Search(ctx, query, maxResults)
		if err != nil {
			failed++
			logger.Error("search failed",
				zap.String("provider", a.Provider.Name()),
				zap.String("query", query),
				zap.Error(err))
			continue
		}
		logger.Info("search succeeded",
			zap.String("provider", a.Provider.Name()),
			zap.String("query", query),
			zap.Int("results", len(results)))

		for _, hit := range results {
			hit.URL = strings.TrimSpace(hit.URL)
			if hit.URL == "" || seen[hit.URL] {
				continue
			}
			seen[hit.URL] = true
			hits = append(hits, hit)
		}
	}

	if failed > 0 && failed == len(queries) {
		logger.Warn("every search query failed", zap.Int("queries", len(queries)))
	}
	return hits
}

// Cap returns at most n hits. n <= 0 means no cap.
func Cap(hits []types.SearchHit, n int) []types.SearchHit {
	if n <= 0 || len(hits) <= n {
		return hits
	}
	return hits[:n]
}
