// Package pipeline provides the high-level orchestration of an analysis run:
// search, evaluation, fetching, extraction, synthesis and report output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/stock-research-agent/internal/advice"
	"github.com/jonathan/stock-research-agent/internal/crawling"
	"github.com/jonathan/stock-research-agent/internal/extraction"
	"github.com/jonathan/stock-research-agent/internal/pipeline/steps"
	"github.com/jonathan/stock-research-agent/internal/ranking"
	"github.com/jonathan/stock-research-agent/internal/rendering"
	"github.com/jonathan/stock-research-agent/internal/search"
	"github.com/jonathan/stock-research-agent/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions holds per-run settings. Zero values fall back to the Agent's defaults.
type RunOptions struct {
	Queries     []string
	RiskProfile types.RiskProfile
	MaxURLs     int
	OnProgress  ProgressCallback
}

// ReportWriter persists finished analyses. *store.Store implements it.
type ReportWriter interface {
	SaveAdvice(subject types.Subject, res types.AdviceResult) (string, error)
	SaveMarketAnalysis(res types.AdviceResult) (string, error)
	SaveBatchSummary(summary rendering.BatchSummary) (string, error)
}

// RunRecorder keeps a history of runs and their step outputs. *store.History implements it.
type RunRecorder interface {
	StartRun(ctx context.Context, runID, kind, subject string, risk types.RiskProfile) error
	SaveArtifact(ctx context.Context, runID, step, category string, content any) error
	CompleteRun(ctx context.Context, runID string, res *types.AdviceResult, runErr error) error
}

// Agent wires the components of one analysis run together.
type Agent struct {
	Aggregator *search.Aggregator
	Fetcher    *crawling.BoundedFetcher
	Evaluator  *ranking.Evaluator
	Extractor  *extraction.Extractor
	Advisor    *advice.Synthesizer // investment advice
	Analyst    *advice.Synthesizer // market analysis
	Reports    ReportWriter        // nil skips report files
	History    RunRecorder         // nil disables run history

	RiskProfile types.RiskProfile
	MaxURLs     int // fetch cap
	TopN        int // filter cap, never above MaxURLs; 0 means MaxURLs
	MinScore    int

	Logger   *zap.Logger
	NewRunID func() string
	Now      func() time.Time
}

// run carries the state of one analysis
type run struct {
	id      string
	opts    RunOptions
	tracker *steps.Tracker
	logger  *zap.Logger

	ctx     context.Context // history writes only; outlives cancellation
	history RunRecorder
}

func (a *Agent) newRun(ctx context.Context, kind, subject string, opts RunOptions) *run {
	newID := a.NewRunID
	if newID == nil {
		newID = uuid.NewString
	}
	if opts.RiskProfile == "" {
		opts.RiskProfile = a.RiskProfile
	}
	opts.RiskProfile = opts.RiskProfile.Normalize()
	if opts.MaxURLs <= 0 {
		opts.MaxURLs = a.MaxURLs
	}
	id := newID()
	r := &run{
		id:      id,
		opts:    opts,
		tracker: steps.NewTracker(),
		logger:  a.logger().With(zap.String("run_id", id)),
		ctx:     context.WithoutCancel(ctx),
		history: a.History,
	}
	if r.history != nil {
		if err := r.history.StartRun(r.ctx, id, kind, subject, opts.RiskProfile); err != nil {
			r.logger.Warn("run history unavailable", zap.Error(err))
			r.history = nil
		}
	}
	return r
}

// finish records the outcome of the run in the history
func (r *run) finish(res *types.AdviceResult, err error) {
	if r.history == nil {
		return
	}
	if herr := r.history.CompleteRun(r.ctx, r.id, res, err); herr != nil {
		r.logger.Warn("failed to record run outcome", zap.Error(herr))
	}
}

// begin validates step ordering and announces the step
func (r *run) begin(step, message string) error {
	if err := r.tracker.Begin(step); err != nil {
		return &AnalysisError{RunID: r.id, Step: step, Message: "step out of order", Cause: err}
	}
	r.emit(step, message, nil)
	return nil
}

// complete marks a step done and reports its output
func (r *run) complete(step, message string, content any) {
	r.tracker.Complete(step)
	r.emit(step, message, content)
	if r.history != nil && content != nil {
		if err := r.history.SaveArtifact(r.ctx, r.id, step, steps.Category(step), content); err != nil {
			r.logger.Warn("failed to record step output", zap.String("step", step), zap.Error(err))
		}
	}
}

// emit calls the progress callback if configured
func (r *run) emit(step, message string, content any) {
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(ProgressEvent{
			Step:     step,
			Category: steps.Category(step),
			Message:  message,
			RunID:    r.id,
			Content:  content,
		})
	}
}

// AnalyzeMarket runs a market-wide analysis over opts.Queries (search.DefaultQueries when empty).
func (a *Agent) AnalyzeMarket(ctx context.Context, opts RunOptions) (res *types.AdviceResult, err error) {
	if len(opts.Queries) == 0 {
		opts.Queries = search.DefaultQueries()
	}
	r := a.newRun(ctx, types.RunKindMarket, "", opts)
	defer func() { r.finish(res, err) }()
	r.logger.Info("starting market analysis",
		zap.Int("queries", len(r.opts.Queries)),
		zap.String("risk", string(r.opts.RiskProfile)))

	hits, err := a.search(ctx, r)
	if err != nil {
		return nil, err
	}

	var urls []string
	if hasMetadata(hits) {
		urls, err = a.evaluateAndFilter(ctx, r, hits)
		if err != nil {
			return nil, err
		}
	} else {
		urls = types.HitURLs(search.Cap(hits, r.opts.MaxURLs))
		if len(hits) > len(urls) {
			r.logger.Info("capped url list", zap.Int("from", len(hits)), zap.Int("to", len(urls)))
		}
	}

	res, err = a.analyze(ctx, r, urls, a.Analyst, "")
	if err != nil {
		return nil, err
	}

	if err := r.begin(steps.StepSave, "Writing market analysis"); err != nil {
		return nil, err
	}
	if a.Reports != nil {
		path, err := a.Reports.SaveMarketAnalysis(*res)
		if err != nil {
			return nil, &AnalysisError{RunID: r.id, Step: steps.StepSave, Message: "failed to write market analysis", Cause: err}
		}
		res.OutputFile = path
		r.logger.Info("market analysis saved", zap.String("path", path))
	}
	r.complete(steps.StepSave, "Market analysis complete", res)
	return res, nil
}

// AnalyzeStock researches one subject and produces investment advice.
// opts.Queries overrides the subject's derived queries.
func (a *Agent) AnalyzeStock(ctx context.Context, subject types.Subject, opts RunOptions) (res *types.AdviceResult, err error) {
	if len(opts.Queries) == 0 {
		opts.Queries = search.StockQueries(subject)
	}
	r := a.newRun(ctx, types.RunKindStock, subject.Identifier(), opts)
	defer func() { r.finish(res, err) }()
	r.logger = r.logger.With(zap.String("subject", subject.Identifier()))
	r.logger.Info("starting stock analysis", zap.String("risk", string(r.opts.RiskProfile)))

	hits, err := a.search(ctx, r)
	if err != nil {
		return nil, err
	}

	urls, err := a.evaluateAndFilter(ctx, r, hits)
	if err != nil {
		return nil, err
	}

	res, err = a.analyze(ctx, r, urls, a.Advisor, subject.Identifier())
	if err != nil {
		return nil, err
	}

	if err := r.begin(steps.StepSave, "Writing investment advice"); err != nil {
		return nil, err
	}
	if a.Reports != nil {
		path, err := a.Reports.SaveAdvice(subject, *res)
		if err != nil {
			return nil, &AnalysisError{RunID: r.id, Step: steps.StepSave, Message: "failed to write advice", Cause: err}
		}
		res.OutputFile = path
		r.logger.Info("advice saved", zap.String("path", path))
	}
	r.complete(steps.StepSave, "Stock analysis complete", res)
	return res, nil
}

// BatchResult is the outcome of BatchAnalyze.
type BatchResult struct {
	Summary    rendering.BatchSummary
	Results    []*types.AdviceResult // nil for failed subjects
	OutputFile string
}

// BatchAnalyze runs AnalyzeStock for each subject in order. A failing subject is
// recorded in the summary and never stops the batch.
func (a *Agent) BatchAnalyze(ctx context.Context, subjects []types.Subject, opts RunOptions) (*BatchResult, error) {
	risk := opts.RiskProfile
	if risk == "" {
		risk = a.RiskProfile
	}
	out := &BatchResult{
		Summary: rendering.BatchSummary{
			GeneratedAt: a.now(),
			RiskProfile: risk.Normalize(),
		},
		Results: make([]*types.AdviceResult, len(subjects)),
	}

	logger := a.logger()
	for i, subject := range subjects {
		entry := rendering.BatchEntry{Subject: subject.Identifier()}

		var res *types.AdviceResult
		err := ctx.Err()
		if err == nil {
			subjectOpts := opts
			subjectOpts.Queries = nil
			res, err = a.AnalyzeStock(ctx, subject, subjectOpts)
		}

		if err != nil {
			logger.Error("subject analysis failed",
				zap.String("subject", subject.Identifier()),
				zap.Int("index", i+1),
				zap.Int("total", len(subjects)),
				zap.Error(err))
			entry.Status = rendering.StatusFailed
			entry.Error = err.Error()
		} else {
			entry.Status = rendering.StatusSucceeded
			entry.Excerpt = rendering.Excerpt(res.Text)
			entry.File = res.OutputFile
			out.Results[i] = res
		}
		out.Summary.Entries = append(out.Summary.Entries, entry)
	}

	logger.Info("batch complete",
		zap.Int("succeeded", out.Summary.Succeeded()),
		zap.Int("failed", out.Summary.Failed()))

	if a.Reports != nil {
		path, err := a.Reports.SaveBatchSummary(out.Summary)
		if err != nil {
			return out, fmt.Errorf("failed to write batch summary: %w", err)
		}
		out.OutputFile = path
	}
	return out, nil
}

// search aggregates the run's queries. No hits is ErrNoURLs.
func (a *Agent) search(ctx context.Context, r *run) ([]types.SearchHit, error) {
	if err := r.begin(steps.StepSearch, fmt.Sprintf("Searching %d queries", len(r.opts.Queries))); err != nil {
		return nil, err
	}
	hits := a.Aggregator.Run(ctx, r.opts.Queries)
	if len(hits) == 0 {
		r.logger.Error("no urls found")
		return nil, &AnalysisError{RunID: r.id, Step: steps.StepSearch, Message: "search returned no urls", Cause: ErrNoURLs}
	}
	r.complete(steps.StepSearch, fmt.Sprintf("Found %d unique urls", len(hits)), hits)
	return hits, nil
}

// evaluateAndFilter scores hits and keeps the best TopN at or above MinScore.
func (a *Agent) evaluateAndFilter(ctx context.Context, r *run, hits []types.SearchHit) ([]string, error) {
	if err := r.begin(steps.StepEvaluate, fmt.Sprintf("Evaluating %d results", len(hits))); err != nil {
		return nil, err
	}
	evals := a.Evaluator.Evaluate(ctx, hits, r.opts.RiskProfile)
	r.complete(steps.StepEvaluate, fmt.Sprintf("Scored %d results", len(evals)), evals)

	if err := r.begin(steps.StepFilter, "Filtering by relevance"); err != nil {
		return nil, err
	}
	scored := ranking.Rank(hits, evals, a.MinScore)
	topN := a.TopN
	if topN <= 0 || topN > r.opts.MaxURLs {
		topN = r.opts.MaxURLs
	}
	urls := ranking.Filter(hits, evals, topN, a.MinScore)
	r.logger.Info("filtered results",
		zap.Int("hits", len(hits)),
		zap.Int("kept", len(urls)),
		zap.Int("top_n", topN),
		zap.Int("min_score", a.MinScore))
	if len(urls) == 0 {
		return nil, &AnalysisError{RunID: r.id, Step: steps.StepFilter, Message: "no result reached the minimum score", Cause: ErrNoURLs}
	}
	r.complete(steps.StepFilter, fmt.Sprintf("Kept %d urls", len(urls)), scored)
	return urls, nil
}

// analyze fetches, extracts and synthesizes. subject is empty for market runs.
func (a *Agent) analyze(ctx context.Context, r *run, urls []string, synth *advice.Synthesizer, subject string) (*types.AdviceResult, error) {
	if err := r.begin(steps.StepFetch, fmt.Sprintf("Fetching %d pages", len(urls))); err != nil {
		return nil, err
	}
	docs := a.Fetcher.Run(ctx, urls)
	if len(docs) == 0 {
		r.logger.Error("no documents fetched", zap.Int("urls", len(urls)))
		return nil, &AnalysisError{RunID: r.id, Step: steps.StepFetch, Message: "every fetch failed", Cause: ErrNoDocuments}
	}
	r.complete(steps.StepFetch, fmt.Sprintf("Fetched %d of %d pages", len(docs), len(urls)), docs)

	if err := r.begin(steps.StepExtract, fmt.Sprintf("Extracting %d documents", len(docs))); err != nil {
		return nil, err
	}
	infos := a.Extractor.ExtractAll(ctx, docs)
	r.complete(steps.StepExtract, fmt.Sprintf("Extracted %d documents", countOK(infos)), infos)

	if err := r.begin(steps.StepSynthesize, "Synthesizing"); err != nil {
		return nil, err
	}
	text, err := synth.Generate(ctx, infos, r.opts.RiskProfile)
	if err != nil {
		r.logger.Warn("synthesis fell back to error text", zap.Error(err))
	}

	res := &types.AdviceResult{
		RunID:       r.id,
		Subject:     subject,
		RiskProfile: string(r.opts.RiskProfile),
		Text:        text,
		SourceURLs:  documentURLs(docs),
		GeneratedAt: a.now(),
	}
	r.complete(steps.StepSynthesize, "Synthesis complete", nil)
	return res, nil
}

func (a *Agent) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *Agent) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// hasMetadata reports whether the provider returned titles or abstracts to evaluate.
func hasMetadata(hits []types.SearchHit) bool {
	for _, h := range hits {
		if h.Title != "" || h.Abstract != "" {
			return true
		}
	}
	return false
}

func documentURLs(docs []types.FetchedDocument) []string {
	urls := make([]string, len(docs))
	for i, d := range docs {
		urls[i] = d.URL
	}
	return urls
}

func countOK(infos []types.ExtractedInfo) int {
	n := 0
	for _, info := range infos {
		if info.OK() {
			n++
		}
	}
	return n
}

// IsUserFacing reports whether err is one of the run failures shown to users verbatim.
func IsUserFacing(err error) bool {
	return errors.Is(err, ErrNoURLs) || errors.Is(err, ErrNoDocuments)
}
