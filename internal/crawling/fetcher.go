// Package crawling fetches a URL set in bounded concurrent batches.
package crawling

import (
	"context"

	"github.com/jonathan/stock-research-agent/internal/fetch"
	"github.com/jonathan/stock-research-agent/internal/fn"
	"github.com/jonathan/stock-research-agent/internal/types"
	"go.uber.org/zap"
)

// DefaultMaxConcurrency is the default batch size.
const DefaultMaxConcurrency = 5

// Fetcher retrieves one page. A returned document always has non-empty content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (types.FetchedDocument, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (types.FetchedDocument, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, url string) (types.FetchedDocument, error) {
	return f(ctx, url)
}

// Snapshotter persists the documents of one run and returns where they went.
type Snapshotter interface {
	SaveSnapshot(docs []types.FetchedDocument) (string, error)
}

// BoundedFetcher fetches URLs in sequential batches of MaxConcurrency.
// Every fetch of a batch runs concurrently and the next batch waits for the
// slowest one, so at most MaxConcurrency fetches are ever in flight.
type BoundedFetcher struct {
	Fetcher        Fetcher
	MaxConcurrency int
	Snapshotter    Snapshotter
	Logger         *zap.Logger
}

// NewBoundedFetcher returns a BoundedFetcher. A nil snapshotter skips persistence.
func NewBoundedFetcher(fetcher Fetcher, maxConcurrency int, snapshotter Snapshotter, logger *zap.Logger) *BoundedFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoundedFetcher{
		Fetcher:        fetcher,
		MaxConcurrency: maxConcurrency,
		Snapshotter:    snapshotter,
		Logger:         logger,
	}
}

// Run fetches urls and returns the successful documents in batch order, then
// input order within a batch. Failed URLs are logged and left out; Run never
// fails as a whole, and returns an empty slice when every URL fails.
func (b *BoundedFetcher) Run(ctx context.Context, urls []string) []types.FetchedDocument {
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	size := b.MaxConcurrency
	if size < 1 {
		size = DefaultMaxConcurrency
	}

	logger.Info("fetching urls", zap.Int("urls", len(urls)), zap.Int("max_concurrency", size))

	results := fn.RunBatches(ctx, urls, fn.BatchOptions{
		Size: size,
		OnBatchDone: func(start, end, total int) {
			logger.Info("batch fetched", zap.Int("from", start+1), zap.Int("to", end), zap.Int("total", total))
		},
	}, func(ctx context.Context, url string) fn.Result[types.FetchedDocument] {
		return b.fetchOne(ctx, logger, url)
	})

	docs := fn.Values(results)
	logger.Info("fetch finished", zap.Int("documents", len(docs)), zap.Int("failed", len(urls)-len(docs)))

	if b.Snapshotter != nil && len(docs) > 0 {
		path, err := b.Snapshotter.SaveSnapshot(docs)
		if err != nil {
			logger.Error("failed to save fetch snapshot", zap.Error(err))
		} else {
			logger.Info("fetch snapshot saved", zap.String("path", path))
		}
	}

	return docs
}

// fetchOne fetches a single URL and logs its failure at the level its kind calls for.
func (b *BoundedFetcher) fetchOne(ctx context.Context, logger *zap.Logger, url string) fn.Result[types.FetchedDocument] {
	doc, err := b.Fetcher.Fetch(ctx, url)
	if err == nil && doc.Content == "" {
		err = &fetch.Error{URL: url, Kind: fetch.KindEmptyContent, Message: "page has no usable text"}
	}
	if err != nil {
		kind := fetch.KindOf(err)
		fields := []zap.Field{zap.String("url", url), zap.String("kind", string(kind)), zap.Error(err)}
		switch kind {
		case fetch.KindTimeout, fetch.KindEmptyContent:
			logger.Warn("fetch dropped", fields...)
		default:
			logger.Error("fetch failed", fields...)
		}
		return fn.Err[types.FetchedDocument](err)
	}

	logger.Debug("fetched", zap.String("url", url), zap.Int("chars", len([]rune(doc.Content))))
	return fn.Ok(doc)
}
