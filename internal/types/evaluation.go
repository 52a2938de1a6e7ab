package types

// MinScore and MaxScore bound relevance scores.
const (
	MinScore     = 0
	MaxScore     = 10
	NeutralScore = 5
)

// Evaluation is the oracle's relevance verdict for one URL.
type Evaluation struct {
	URL    string `json:"url"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}
