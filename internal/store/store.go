// Package store writes the run artifacts: fetch snapshots, advice reports and batch summaries.
// Report file names carry the run timestamp and are never appended to. History keeps one
// JSON file per run under runs/.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/stock-research-agent/internal/rendering"
	"github.com/jonathan/stock-research-agent/internal/types"
)

// TimestampLayout formats the timestamp embedded in file names.
const TimestampLayout = "20060102_150405"

// WriteError reports a failed artifact write.
type WriteError struct {
	Path    string
	Message string
	Cause   error
}

func (e *WriteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to write %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to write %s: %s", e.Path, e.Message)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}

// Store writes snapshots to DataDir and reports to OutputDir.
type Store struct {
	DataDir   string
	OutputDir string
	Now       func() time.Time
}

// New creates a Store.
func New(dataDir, outputDir string) *Store {
	return &Store{DataDir: dataDir, OutputDir: outputDir, Now: time.Now}
}

func (s *Store) timestamp() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().Format(TimestampLayout)
}

// SaveSnapshot writes docs as crawl_results_<ts>.json and returns the path.
func (s *Store) SaveSnapshot(docs []types.FetchedDocument) (string, error) {
	if docs == nil {
		docs = []types.FetchedDocument{}
	}
	path := filepath.Join(s.DataDir, fmt.Sprintf("crawl_results_%s.json", s.timestamp()))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return "", &WriteError{Path: path, Message: "failed to encode snapshot", Cause: err}
	}
	return path, writeFile(path, buf.Bytes())
}

// LoadSnapshot reads a snapshot written by SaveSnapshot.
func LoadSnapshot(path string) ([]types.FetchedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	var docs []types.FetchedDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return docs, nil
}

// SaveAdvice writes <code>_advice_<ts>.txt for a subject analysis.
func (s *Store) SaveAdvice(subject types.Subject, res types.AdviceResult) (string, error) {
	name := fmt.Sprintf("%s_advice_%s.txt", sanitize(subject.Code), s.timestamp())
	return s.saveReport(name, res)
}

// SaveMarketAnalysis writes market_analysis_<ts>.txt.
func (s *Store) SaveMarketAnalysis(res types.AdviceResult) (string, error) {
	return s.saveReport(fmt.Sprintf("market_analysis_%s.txt", s.timestamp()), res)
}

func (s *Store) saveReport(name string, res types.AdviceResult) (string, error) {
	path := filepath.Join(s.OutputDir, name)
	text, err := rendering.RenderReport(rendering.ReportFromResult(res))
	if err != nil {
		return "", &WriteError{Path: path, Message: "failed to render report", Cause: err}
	}
	return path, writeFile(path, []byte(text))
}

// SaveBatchSummary writes batch_summary_<ts>.txt.
func (s *Store) SaveBatchSummary(summary rendering.BatchSummary) (string, error) {
	path := filepath.Join(s.OutputDir, fmt.Sprintf("batch_summary_%s.txt", s.timestamp()))
	text, err := rendering.RenderBatchSummary(summary)
	if err != nil {
		return "", &WriteError{Path: path, Message: "failed to render batch summary", Cause: err}
	}
	return path, writeFile(path, []byte(text))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &WriteError{Path: path, Message: "failed to create directory", Cause: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &WriteError{Path: path, Message: "failed to write file", Cause: err}
	}
	return nil
}

// sanitize keeps a subject code usable as a file name component.
func sanitize(code string) string {
	out := []rune(code)
	for i, r := range out {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "unknown"
	}
	return string(out)
}
