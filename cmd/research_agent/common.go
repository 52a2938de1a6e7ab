package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/stock-research-agent/internal/config"
	"github.com/jonathan/stock-research-agent/internal/llm"
	"github.com/jonathan/stock-research-agent/internal/logging"
	"github.com/jonathan/stock-research-agent/internal/observability"
	"github.com/jonathan/stock-research-agent/internal/pipeline"
	"github.com/jonathan/stock-research-agent/internal/prompts"
	"github.com/jonathan/stock-research-agent/internal/ranking"
	"github.com/jonathan/stock-research-agent/internal/types"
)

// loadConfig reads --config, applies the environment and then explicit flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies the flags the user actually set over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.OutputDir = outDir
	}
	if flags.Changed("risk") {
		risk, err := types.ParseRiskProfile(riskFlag)
		if err != nil {
			return err
		}
		cfg.Analysis.RiskProfile = string(risk)
	}
	if flags.Changed("urls") {
		cfg.Analysis.MaxURLs = maxURLs
	}
	if flags.Changed("top-n") {
		cfg.Filter.TopN = topN
	}
	if flags.Changed("min-score") {
		score := minScore
		cfg.Filter.MinScore = &score
	}
	if flags.Changed("concurrency") {
		cfg.Crawler.MaxConcurrency = concurrency
	}
	if flags.Changed("method") {
		cfg.Search.Method = strings.ToLower(methodFlag)
	}
	if apiKeyFlag != "" {
		cfg.LLM.APIKey = apiKeyFlag
	}
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logging.New(level, cfg.Log.File)
}

// runtime holds an agent and the oracle connection it owns.
type runtime struct {
	agent  *pipeline.Agent
	client llm.Client
}

func (rt *runtime) Close() {
	_ = rt.client.Close()
}

// buildAgent wires the oracle client, search provider and agent.
// The caller closes the returned runtime.
func buildAgent(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runtime, error) {
	if err := prompts.Check(); err != nil {
		return nil, err
	}
	client, err := pipeline.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	provider, err := pipeline.NewProvider(ctx, cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	agent := pipeline.New(cfg, client, provider, logger)
	return &runtime{agent: agent, client: client}, nil
}

// progressPrinter renders pipeline events in verbose mode.
func progressPrinter(printer *observability.Printer) pipeline.ProgressCallback {
	return func(event pipeline.ProgressEvent) {
		printer.PrintProgress(event.Step, event.Message)
		switch content := event.Content.(type) {
		case []types.SearchHit:
			printer.PrintSearchHits(content)
		case []ranking.ScoredHit:
			printer.PrintScoredHits(content)
		case []types.FetchedDocument:
			printer.PrintDocuments(content)
		case []types.ExtractedInfo:
			printer.PrintExtraction(content)
		}
	}
}

func runOptions(out io.Writer) pipeline.RunOptions {
	opts := pipeline.RunOptions{}
	if verbose {
		opts.OnProgress = progressPrinter(observability.NewPrinter(out))
	}
	return opts
}

// printResult writes the analysis text framed the way the report files are.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func printResult(out io.Writer, title string, res *types.AdviceResult) {
	if verbose {
		observability.NewPrinter(out).PrintAdvice(res)
		return
	}
	rule := strings.Repeat("=", 50)
	fmt.Fprintf(out, "\n%s\n【%s】\n%s\n%s\n%s\n", rule, title, rule, res.Text, rule)
	if res.OutputFile != "" {
		fmt.Fprintf(out, "已保存至: %s\n", res.OutputFile)
	}
}

// userError turns the pipeline's user-facing failures into their plain message.
func userError(err error) error {
	switch {
	case errors.Is(err, pipeline.ErrNoURLs):
		return pipeline.ErrNoURLs
	case errors.Is(err, pipeline.ErrNoDocuments):
		return pipeline.ErrNoDocuments
	default:
		return err
	}
}
