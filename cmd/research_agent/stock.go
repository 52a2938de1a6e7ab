package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/stock-research-agent/internal/types"
)

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Generate investment advice for one stock",
	Long:  "Searches news, research reports and financial analysis for one stock, keeps the most relevant pages and writes an advice report.",
	RunE:  runStock,
}

var (
	stockCode string
	stockName string
)

func init() {
	stockCmd.Flags().StringVar(&stockCode, "code", "", "Stock code, e.g. 000001 (required)")
	stockCmd.Flags().StringVar(&stockName, "name", "", "Stock name, e.g. 平安银行")

	if err := stockCmd.MarkFlagRequired("code"); err != nil {
		panic(fmt.Sprintf("failed to mark code flag as required: %v", err))
	}

	rootCmd.AddCommand(stockCmd)
}

func runStock(cmd *cobra.Command, _ []string) error {
	subject := types.Subject{Code: strings.TrimSpace(stockCode), Name: strings.TrimSpace(stockName)}
	if subject.Code == "" {
		return fmt.Errorf("--code must not be empty")
	}

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

	res, err := agent.AnalyzeStock(ctx, subject, runOptions(cmd.OutOrStdout()))
	if err != nil {
		return userError(err)
	}
	printResult(cmd.OutOrStdout(), subject.Identifier()+" 投资建议", res)
	return nil
}
