package ranking

import (
	"sort"

	"github.com/jonathan/stock-research-agent/internal/types"
)

// ScoredHit is a hit joined to its evaluation.
type ScoredHit struct {
	types.SearchHit
	Score  int
	Reason string
}

// Rank joins hits to evaluations by URL, drops those below minScore and sorts the rest by
// score descending. Hits without an evaluation score 0. Equal scores keep input order.
func Rank(hits []types.SearchHit, evals []types.Evaluation, minScore int) []ScoredHit {
	byURL := make(map[string]types.Evaluation, len(evals))
	for _, ev := range evals {
		byURL[ev.URL] = ev
	}

	scored := make([]ScoredHit, 0, len(hits))
	for _, hit := range hits {
		ev := byURL[hit.URL]
		if ev.Score < minScore {
			continue
		}
		scored = append(scored, ScoredHit{SearchHit: hit, Score: ev.Score, Reason: ev.Reason})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Filter returns at most topN URLs scoring at least minScore, best first.
// Fewer than topN passing hits are returned as-is, not padded.
func Filter(hits []types.SearchHit, evals []types.Evaluation, topN, minScore int) []string {
	scored := Rank(hits, evals, minScore)
	if topN < 0 {
		topN = 0
	}
	if len(scored) > topN {
		scored = scored[:topN]
	}

	urls := make([]string, len(scored))
	for i, s := range scored {
		urls[i] = s.URL
	}
	return urls
}
