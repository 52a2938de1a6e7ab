// Package fetch - cached.go provides an in-memory page cache shared across runs of one process.
package fetch

import (
	"context"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a fetched page stays fresh.
const DefaultCacheTTL = 30 * time.Minute

// Source retrieves the raw HTML for a URL.
type Source interface {
	Get(ctx context.Context, urlStr string) (*Result, error)
}

// HTTPSource fetches pages with URL.
type HTTPSource struct {
	Options *Options
}

// Get implements Source.
func (s HTTPSource) Get(ctx context.Context, urlStr string) (*Result, error) {
	return URL(ctx, urlStr, s.Options)
}

type cacheEntry struct {
	result    *Result
	fetchedAt time.Time
}

// CachedFetcher wraps a Source with an in-memory cache keyed by URL.
// Only successful fetches are cached. Batch analyses of several subjects
// often hit the same portal pages, which this avoids downloading twice.
type CachedFetcher struct {
	source   Source
	cacheTTL time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCachedFetcher creates a new cached fetcher. A zero ttl uses DefaultCacheTTL.
func NewCachedFetcher(source Source, ttl time.Duration) *CachedFetcher {
	if source == nil {
		source = HTTPSource{Options: DefaultOptions()}
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedFetcher{
		source:   source,
		cacheTTL: ttl,
		now:      time.Now,
		entries:  make(map[string]cacheEntry),
	}
}

// Get returns a fresh cached page or fetches it from the underlying source.
func (f *CachedFetcher) Get(ctx context.Context, urlStr string) (*Result, error) {
	f.mu.Lock()
	entry, ok := f.entries[urlStr]
	f.mu.Unlock()
	if ok && f.now().Sub(entry.fetchedAt) < f.cacheTTL {
		return entry.result, nil
	}

	result, err := f.source.Get(ctx, urlStr)
	if err != nil {
		return result, err
	}

	f.mu.Lock()
	f.entries[urlStr] = cacheEntry{result: result, fetchedAt: f.now()}
	f.mu.Unlock()
	return result, nil
}

// Invalidate drops a URL from the cache, forcing a re-fetch on next request.
func (f *CachedFetcher) Invalidate(urlStr string) {
	f.mu.Lock()
	delete(f.entries, urlStr)
	f.mu.Unlock()
}

// Len returns the number of cached pages.
func (f *CachedFetcher) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}
