package search

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/stock-research-agent/internal/fetch"
	"github.com/jonathan/stock-research-agent/internal/types"
)

// DefaultBaiduEndpoint is the Baidu web search results page.
const DefaultBaiduEndpoint = "https://www.baidu.com/s"

// BaiduProvider scrapes the Baidu results page, which carries a title and abstract per hit.
type BaiduProvider struct {
	Endpoint string
	Options  *fetch.Options
}

// NewBaiduProvider returns a provider against endpoint (DefaultBaiduEndpoint when empty).
func NewBaiduProvider(endpoint string, opts *fetch.Options) *BaiduProvider {
	if endpoint == "" {
		endpoint = DefaultBaiduEndpoint
	}
	if opts == nil {
		opts = fetch.DefaultOptions()
	}
	return &BaiduProvider{Endpoint: endpoint, Options: opts}
}

// Name implements Provider.
func (b *BaiduProvider) Name() string { return string(MethodBaidu) }

// Search implements Provider.
func (b *BaiduProvider) Search(ctx context.Context, query string, maxResults int) ([]types.SearchHit, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	u, err := url.Parse(b.Endpoint)
	if err != nil {
		return nil, &ProviderError{Provider: b.Name(), Query: query, Message: "invalid endpoint", Cause: err}
	}
	q := u.Query()
	q.Set("wd", query)
	q.Set("rn", strconv.Itoa(maxResults))
	u.RawQuery = q.Encode()

	result, err := fetch.URL(ctx, u.String(), b.Options)
	if err != nil {
		return nil, &ProviderError{Provider: b.Name(), Query: query, Message: "request failed", Cause: err}
	}

	hits, err := ParseBaiduResults(result.HTML, u)
	if err != nil {
		return nil, &ProviderError{Provider: b.Name(), Query: query, Message: "failed to parse results", Cause: err}
	}
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	return hits, nil
}

// ParseBaiduResults extracts hits from a Baidu results page. Relative links are
// resolved against base; hits are returned in page order.
func ParseBaiduResults(html string, base *url.URL) ([]types.SearchHit, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var hits []types.SearchHit
	doc.Find("div.result, div.c-container").Each(func(_ int, s *goquery.Selection) {
		// c-container often wraps result; skip the inner duplicate
		if s.ParentsFiltered("div.result, div.c-container").Length() > 0 {
			return
		}

		link := s.Find("h3 a").First()
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		if base != nil {
			if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
				href = base.ResolveReference(ref).String()
			}
		}

		abstract := s.Find(".c-abstract, .content-right_8Zs40, .c-span-last .c-color-text").First().Text()
		if strings.TrimSpace(abstract) == "" {
			abstract = s.Find("span.content-right_2s-H4, .c-gap-top-small").First().Text()
		}

		hits = append(hits, types.SearchHit{
			URL:      href,
			Title:    strings.Join(strings.Fields(link.Text()), " "),
			Abstract: strings.Join(strings.Fields(abstract), " "),
		})
	})
	return hits, nil
}
