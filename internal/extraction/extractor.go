// Package extraction pulls structured information out of fetched documents with one
// oracle call per document, choosing the prompt by document classification.
package extraction

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/stock-research-agent/internal/classify"
	"github.com/jonathan/stock-research-agent/internal/fn"
	"github.com/jonathan/stock-research-agent/internal/llm"
	"github.com/jonathan/stock-research-agent/internal/prompts"
	"github.com/jonathan/stock-research-agent/internal/types"
	"go.uber.org/zap"
)

const (
	// DefaultContentBudget caps the document text sent in one prompt, leaving room for scaffolding.
	DefaultContentBudget = 14000
	// TruncationMarker is appended to text cut at the budget.
	TruncationMarker = "..."
	// ErrEmptyContent is the error text recorded for documents with no content.
	ErrEmptyContent = "文档内容为空"
)

// Extractor runs per-document extraction.
type Extractor struct {
	Client llm.Client
	Tier   llm.ModelTier
	// Concurrency bounds ExtractAll's in-flight oracle calls. Values < 1 mean sequential.
	Concurrency   int
	ContentBudget int
	Logger        *zap.Logger
}

// NewExtractor creates a sequential Extractor on the standard tier.
func NewExtractor(client llm.Client, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		Client:        client,
		Tier:          llm.TierStandard,
		Concurrency:   1,
		ContentBudget: DefaultContentBudget,
		Logger:        logger,
	}
}

// Extract never returns an error: failures are recorded on the returned record.
func (x *Extractor) Extract(ctx context.Context, doc types.FetchedDocument) types.ExtractedInfo {
	logger := x.logger().With(zap.String("url", doc.URL))
	info := types.ExtractedInfo{URL: doc.URL, Title: doc.Title}

	if doc.Content == "" {
		logger.Warn("document content empty")
		info.Error = ErrEmptyContent
		return info
	}

	budget := x.ContentBudget
	if budget <= 0 {
		budget = DefaultContentBudget
	}
	content, truncated := llm.TruncateRunes(doc.Content, budget, TruncationMarker)
	if truncated {
		logger.Info("document content truncated", zap.Int("budget", budget))
	}

	title := doc.Title
	if title == "" {
		title = types.UnknownTitle
	}
	label := classify.Classify(doc.URL, title, content)
	schema := SchemaFor(label)
	logger.Info("extracting document", zap.String("title", title), zap.String("label", label.String()))

	header := prompts.Format(prompts.MustGet(promptFile, "document-header"), map[string]string{
		"Title": title,
		"URL":   doc.URL,
	})
	user := llm.BuildExtractionPrompt(schema, header, content)

	reply, err := x.Client.Complete(ctx, schema.Description, user, x.Tier)
	if err != nil {
		logger.Error("extraction call failed", zap.Error(err))
		info.Error = err.Error()
		return info
	}

	data, parsed := ParseReply(reply)
	if !parsed {
		logger.Warn("extraction reply is not JSON, keeping raw text")
	}
	info.Data = data
	return info
}

// ExtractAll extracts docs in bounded batches. Output order matches input order.
func (x *Extractor) ExtractAll(ctx context.Context, docs []types.FetchedDocument) []types.ExtractedInfo {
	logger := x.logger()
	logger.Info("extracting documents", zap.Int("count", len(docs)), zap.Int("concurrency", max(x.Concurrency, 1)))

	return fn.RunBatches(ctx, docs, fn.BatchOptions{
		Size: x.Concurrency,
		OnBatchDone: func(start, end, total int) {
			logger.Debug("extraction batch done", zap.Int("from", start), zap.Int("to", end), zap.Int("total", total))
		},
	}, x.Extract)
}

func (x *Extractor) logger() *zap.Logger {
	if x.Logger == nil {
		return zap.NewNop()
	}
	return x.Logger
}

// ParseReply decodes a JSON object or array from the reply. Anything else is
// returned as the trimmed raw text with parsed=false.
func ParseReply(reply string) (data any, parsed bool) {
	cleaned := llm.CleanJSONBlock(reply)

	var v any
	if err := json.Unmarshal([]byte(cleaned), &v); err == nil {
		switch v.(type) {
		case map[string]any, []any:
			return v, true
		}
	}
	return strings.TrimSpace(reply), false
}
