// Package main implements the research_agent CLI: market analysis, single-stock
// advice and batch analysis over web search results.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "research_agent",
	Short: "Stock research agent",
	Long: "research_agent searches the web for market and stock information, scores and filters the results, " +
		"extracts key facts from each page and synthesizes investment advice tailored to a risk profile.",
	SilenceUsage: true,
}

// Flags shared by every subcommand
var (
	configPath  string
	outDir      string
	riskFlag    string
	maxURLs     int
	topN        int
	minScore    int
	concurrency int
	methodFlag  string
	verbose     bool
	apiKeyFlag  string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file (JSON or YAML)")
	flags.StringVarP(&outDir, "out", "o", "", "Output directory for reports (overrides config)")
	flags.StringVarP(&riskFlag, "risk", "r", "", "Risk profile: low, medium or high")
	flags.IntVar(&maxURLs, "urls", 0, "Maximum number of URLs to fetch")
	flags.IntVar(&topN, "top-n", 0, "Maximum number of results kept by the relevance filter")
	flags.IntVar(&minScore, "min-score", 0, "Minimum relevance score (0 keeps unscored results)")
	flags.IntVar(&concurrency, "concurrency", 0, "Maximum concurrent page fetches")
	flags.StringVarP(&methodFlag, "method", "m", "", "Search method: google or baidu")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Print progress and intermediate results")
	flags.StringVar(&apiKeyFlag, "api-key", "", "Oracle API key (overrides LLM_API_KEY env var)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
