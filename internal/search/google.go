package search

import (
	"context"

	"github.com/jonathan/stock-research-agent/internal/types"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// googlePageSize is the Custom Search API per-request maximum.
const googlePageSize = 10

// GoogleProvider searches with the Google Custom Search JSON API.
type GoogleProvider struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleProvider creates a provider for the search engine cx.
// Extra client options (endpoint, HTTP client) are appended after the API key.
func NewGoogleProvider(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*GoogleProvider, error) {
	if apiKey == "" || cx == "" {
		return nil, &ProviderError{Provider: string(MethodGoogle), Message: "API key and search engine ID are required"}
	}
	svc, err := customsearch.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, &ProviderError{Provider: string(MethodGoogle), Message: "failed to create customsearch service", Cause: err}
	}
	return &GoogleProvider{
		svc: svc,
		cx:  cx,
	}, nil
}

// Name implements Provider.
func (g *GoogleProvider) Name() string { return string(MethodGoogle) }

// Search pages through results until maxResults hits are collected or results run out.
func (g *GoogleProvider) Search(ctx context.Context, query string, maxResults int) ([]types.SearchHit, error) {
	if maxResults <= 0 {
		maxResults = googlePageSize
	}

	var hits []types.SearchHit
	for start := int64(1); len(hits) < maxResults; {
		num := maxResults - len(hits)
		if num > googlePageSize {
			num = googlePageSize
		}

		resp, err := g.svc.Cse.List().Cx(g.cx).Q(query).Num(int64(num)).Start(start).Context(ctx).Do()
		if err != nil {
			if len(hits) > 0 {
				break // keep the pages we already have
			}
			return nil, &ProviderError{Provider: g.Name(), Query: query, Message: "request failed", Cause: err}
		}

		for _, item := range resp.Items {
			if item.Link == "" {
				continue
			}
			hits = append(hits, types.SearchHit{URL: item.Link, Title: item.Title, Abstract: item.Snippet})
		}

		if len(resp.Items) < num {
			break
		}
		start += int64(len(resp.Items))
	}

	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	return hits, nil
}
