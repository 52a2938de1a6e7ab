package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/stock-research-agent/internal/classify"
	"github.com/jonathan/stock-research-agent/internal/pipeline"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Fetch a page and print its document label",
	Long:  "Fetches one URL and classifies it as a broker report, a policy document or generic news, naming the signal that decided.",
	RunE:  runClassify,
}

var classifyURL string

func init() {
	classifyCmd.Flags().StringVarP(&classifyURL, "url", "u", "", "Page URL (required)")

	if err := classifyCmd.MarkFlagRequired("url"); err != nil {
		panic(fmt.Sprintf("failed to mark url flag as required: %v", err))
	}

	rootCmd.AddCommand(classifyCmd)
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func runClassify(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	doc, err := pipeline.NewPageFetcher(cfg, logger).Fetch(cmd.Context(), classifyURL)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", classifyURL, err)
	}

	label, signal := classify.Explain(doc.URL, doc.Title, doc.Content)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "URL:    %s\n", doc.URL)
	fmt.Fprintf(out, "Title:  %s\n", doc.Title)
	fmt.Fprintf(out, "Label:  %s (%s)\n", label, label.DisplayName())
	if signal != classify.SignalNone {
		fmt.Fprintf(out, "Signal: %s\n", signal)
	}
	return nil
}
