package types

import (
	"encoding/json"
	"time"
)

// Run kinds
const (
	RunKindStock  = "stock"
	RunKindMarket = "market"
)

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunRecord is the history entry of one analysis.
type RunRecord struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Subject     string     `json:"subject,omitempty"`
	RiskProfile string     `json:"risk_profile"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	OutputFile  string     `json:"output_file,omitempty"`
	Sources     []string   `json:"sources,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunArtifact is the JSON output of one completed step.
type RunArtifact struct {
	Step      string          `json:"step"`
	Category  string          `json:"category"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}
