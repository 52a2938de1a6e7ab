package types

import "time"

// AdviceResult is the terminal artifact of an analysis run.
// SourceURLs keeps the order in which documents were passed to synthesis.
type AdviceResult struct {
	RunID       string    `json:"run_id"`
	Subject     string    `json:"subject"`
	RiskProfile string    `json:"risk_profile"`
	Text        string    `json:"text"`
	SourceURLs  []string  `json:"sources"`
	GeneratedAt time.Time `json:"generated_at"`
	OutputFile  string    `json:"output_file,omitempty"`
}
