// Package types provides type definitions for structured data used throughout the stock research agent.
//
//nolint:revive // types is a standard Go package name pattern
package types

// SearchHit is a single search-result reference to a candidate document, pre-fetch.
// URL is the natural key: two hits with the same URL are duplicates.
type SearchHit struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Abstract string `json:"abstract,omitempty"`
}

// HitURLs returns the URLs of hits in order.
func HitURLs(hits []SearchHit) []string {
	urls := make([]string, len(hits))
	for i, h := range hits {
		urls[i] = h.URL
	}
	return urls
}
