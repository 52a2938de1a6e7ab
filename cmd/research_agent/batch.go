package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/stock-research-agent/internal/ingestion"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze every stock in a list file",
	Long:  "Reads a stock list (one \"code,name\" per line, # starts a comment), analyzes each stock in turn and writes a batch summary.",
	RunE:  runBatch,
}

var batchFile string

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "Stock list file (required)")

	if err := batchCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}

	rootCmd.AddCommand(batchCmd)
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func runBatch(cmd *cobra.Command, _ []string) error {
	subjects, err := ingestion.ReadSubjectList(batchFile)
	if err != nil {
		return err
	}
	if len(subjects) == 0 {
		return fmt.Errorf("no stocks found in %s", batchFile)
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

	out := cmd.OutOrStdout()
	result, err := agent.BatchAnalyze(ctx, subjects, runOptions(out))
	if err != nil {
		return err
	}

	for i, entry := range result.Summary.Entries {
		fmt.Fprintf(out, "%d. %s [%s]\n", i+1, entry.Subject, entry.Status)
		if entry.Error != "" {
			fmt.Fprintf(out, "   错误: %s\n", entry.Error)
		}
	}
	fmt.Fprintf(out, "成功: %d，失败: %d，共 %d 只股票\n",
		result.Summary.Succeeded(), result.Summary.Failed(), len(result.Summary.Entries))
	if result.OutputFile != "" {
		fmt.Fprintf(out, "汇总已保存至: %s\n", result.OutputFile)
	}
	return nil
}
