package main

import (
	"github.com/spf13/cobra"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Analyze the overall market",
	Long:  "Runs the default market query list (or --query values), fetches the best pages and writes a market analysis report.",
	RunE:  runMarket,
}

var marketQueries []string

func init() {
	marketCmd.Flags().StringArrayVarP(&marketQueries, "query", "q", nil, "Search query (repeatable, replaces the default list)")
	rootCmd.AddCommand(marketCmd)
}

func runMarket(cmd *cobra.Command, _ []string) error {
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
	rt, err := buildAgent(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	agent := rt.agent

	opts := runOptions(cmd.OutOrStdout())
	opts.Queries = marketQueries
	res, err := agent.AnalyzeMarket(ctx, opts)
	if err != nil {
		return userError(err)
	}
	printResult(cmd.OutOrStdout(), "市场分析", res)
	return nil
}
