// Package search turns query lists into de-duplicated search hits.
package search

import (
	"context"
	"fmt"

	"github.com/jonathan/stock-research-agent/internal/types"
)

// Method names a search backend.
type Method string

// Supported search methods
const (
	MethodGoogle Method = "google"
	MethodBaidu  Method = "baidu"
)

// ParseMethod validates a method name. Empty means google.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodGoogle:
		return MethodGoogle, nil
	case MethodBaidu:
		return MethodBaidu, nil
	default:
		return "", fmt.Errorf("unsupported search method %q (want google or baidu)", s)
	}
}

// Provider is a single search backend.
type Provider interface {
	// Name identifies the provider in logs and errors
	Name() string
	// Search returns at most maxResults hits for query
	Search(ctx context.Context, query string, maxResults int) ([]types.SearchHit, error)
}

// ProviderError represents a failed search call
type ProviderError struct {
	Provider string
	Query    string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("search error (%s) for %q: %s: %v", e.Provider, e.Query, e.Message, e.Cause)
	}
	return fmt.Sprintf("search error (%s) for %q: %s", e.Provider, e.Query, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, query string, maxResults int) ([]types.SearchHit, error)
}

// Name implements Provider.
func (p ProviderFunc) Name() string { return p.ProviderName }

// Search implements Provider.
func (p ProviderFunc) Search(ctx context.Context, query string, maxResults int) ([]types.SearchHit, error) {
	return p.Fn(ctx, query, maxResults)
}
