package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/stock-research-agent/internal/schemas"
	"github.com/jonathan/stock-research-agent/internal/store"
)

var validateSnapshotCmd = &cobra.Command{
	Use:   "validate-snapshot",
	Short: "Validate a crawl snapshot against its schema",
	Long:  "Validates a crawl_results_<ts>.json file written during fetching against the embedded snapshot schema.",
	RunE:  runValidateSnapshot,
}

var snapshotFile string

func init() {
	validateSnapshotCmd.Flags().StringVarP(&snapshotFile, "file", "f", "", "Snapshot JSON file (required)")

	if err := validateSnapshotCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}

	rootCmd.AddCommand(validateSnapshotCmd)
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func runValidateSnapshot(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if err := schemas.ValidateFile(schemas.SnapshotSchema, snapshotFile); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			fmt.Fprintln(out, "Validation failed:")
			for _, fe := range validationErr.Errors {
				fmt.Fprintf(out, "  - %s: %s\n", fe.Field, fe.Message)
			}
		}
		return err
	}

	docs, err := store.LoadSnapshot(snapshotFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Validation passed: %d documents\n", len(docs))
	return nil
}
