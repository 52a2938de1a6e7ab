package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/stock-research-agent/internal/observability"
	"github.com/jonathan/stock-research-agent/internal/pipeline"
	"github.com/jonathan/stock-research-agent/internal/ranking"
	"github.com/jonathan/stock-research-agent/internal/search"
	"github.com/jonathan/stock-research-agent/internal/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Run search queries and list the merged results",
	Long:  "Runs each query against the configured search method, merges and de-duplicates the hits, and optionally scores them with the oracle.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var searchEvaluate bool

func init() {
	searchCmd.Flags().BoolVar(&searchEvaluate, "evaluate", false, "Score the hits and apply the relevance filter")
	rootCmd.AddCommand(searchCmd)
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	provider, err := pipeline.NewProvider(ctx, cfg)
	if err != nil {
		return err
	}
	aggregator := search.NewAggregator(provider, cfg.Search.MaxResults, cfg.Search.SleepDuration(), logger)
	hits := aggregator.Run(ctx, args)
	if len(hits) == 0 {
		return pipeline.ErrNoURLs
	}

	out := cmd.OutOrStdout()
	printer := observability.NewPrinter(out)
	if !searchEvaluate {
		if verbose {
			printer.PrintSearchHits(hits)
			return nil
		}
		for _, url := range types.HitURLs(hits) {
			fmt.Fprintln(out, url)
		}
		return nil
	}

	client, err := pipeline.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	evals := ranking.NewEvaluator(client, logger).Evaluate(ctx, hits, types.RiskProfile(cfg.Analysis.RiskProfile))
	scored := ranking.Rank(hits, evals, cfg.Filter.MinScoreValue())
	if len(scored) > cfg.Filter.TopN {
		scored = scored[:cfg.Filter.TopN]
	}
	if verbose {
		printer.PrintScoredHits(scored)
		return nil
	}
	for _, s := range scored {
		fmt.Fprintf(out, "%2d  %s  %s\n", s.Score, s.URL, s.Reason)
	}
	return nil
}
