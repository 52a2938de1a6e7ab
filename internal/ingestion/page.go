package ingestion

import (
	"context"
	"time"

	"github.com/jonathan/stock-research-agent/internal/fetch"
	"github.com/jonathan/stock-research-agent/internal/types"
	"go.uber.org/zap"
)

// BrowserRenderer renders a page with a headless browser and returns its HTML.
type BrowserRenderer func(ctx context.Context, url string, timeout time.Duration, logger *zap.Logger) (string, error)

// PageFetcher fetches a URL and turns it into a FetchedDocument: title, main text,
// platform-specific selectors, optional browser fallback for script-rendered pages.
type PageFetcher struct {
	Source     fetch.Source
	UseBrowser bool
	Browser    BrowserRenderer
	Timeout    time.Duration
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewPageFetcher returns a PageFetcher over source. A nil source fetches over plain HTTP.
func NewPageFetcher(source fetch.Source, useBrowser bool, timeout time.Duration, logger *zap.Logger) *PageFetcher {
	if source == nil {
		source = fetch.HTTPSource{Options: &fetch.Options{Timeout: timeout, UserAgent: fetch.DefaultUserAgent}}
	}
	if timeout <= 0 {
		timeout = fetch.DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageFetcher{
		Source:     source,
		UseBrowser: useBrowser,
		Browser:    fetch.WithBrowser,
		Timeout:    timeout,
		Logger:     logger,
		Now:        time.Now,
	}
}

// Fetch retrieves urlStr and returns a document with non-empty content.
// Empty extracted text is reported as a fetch.Error of KindEmptyContent.
func (p *PageFetcher) Fetch(ctx context.Context, urlStr string) (types.FetchedDocument, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	platform := fetch.DetectPlatform(urlStr)
	logger.Debug("fetching page", zap.String("url", urlStr), zap.String("platform", string(platform)))

	result, err := p.Source.Get(ctx, urlStr)
	if err != nil {
		return types.FetchedDocument{}, err
	}

	contentSelectors := fetch.PlatformContentSelectors(platform)
	noiseSelectors := fetch.PlatformNoiseSelectors(platform)

	html := result.HTML
	textContent, err := fetch.ExtractMainText(html, contentSelectors, noiseSelectors...)
	if err != nil {
		return types.FetchedDocument{}, &fetch.Error{URL: urlStr, Kind: fetch.KindExtraction, Message: "content extraction failed", Cause: err}
	}

	if p.UseBrowser && p.Browser != nil && fetch.ShouldUseBrowser(textContent) {
		logger.Debug("content too short, falling back to browser rendering",
			zap.String("url", urlStr), zap.Int("chars", len([]rune(textContent))))

		browserHTML, browserErr := p.Browser(ctx, urlStr, p.Timeout, logger)
		if browserErr != nil {
			// Continue with HTTP content if browser fails
			logger.Debug("browser rendering failed", zap.String("url", urlStr), zap.Error(browserErr))
		} else if browserText, extractErr := fetch.ExtractMainText(browserHTML, contentSelectors, noiseSelectors...); extractErr == nil {
			html = browserHTML
			textContent = browserText
		}
	}

	content := CleanText(textContent)
	if content == "" {
		return types.FetchedDocument{}, &fetch.Error{URL: urlStr, Kind: fetch.KindEmptyContent, Message: "page has no usable text"}
	}

	title := fetch.ExtractTitle(html)
	if title == "" {
		title = types.UnknownTitle
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	return types.FetchedDocument{
		URL:       urlStr,
		Title:     title,
		Content:   content,
		FetchedAt: now(),
	}, nil
}
