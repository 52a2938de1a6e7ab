// Package ranking scores search hits for investment relevance with the oracle and
// narrows them to the best few.
package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/jonathan/stock-research-agent/internal/llm"
	"github.com/jonathan/stock-research-agent/internal/prompts"
	"github.com/jonathan/stock-research-agent/internal/schemas"
	"github.com/jonathan/stock-research-agent/internal/types"
	"go.uber.org/zap"
)

const promptFile = "evaluation.json"

// Evaluator scores a whole batch of hits with a single oracle call.
type Evaluator struct {
	Client llm.Client
	Tier   llm.ModelTier
	Logger *zap.Logger
}

// NewEvaluator creates an Evaluator using the lite tier.
func NewEvaluator(client llm.Client, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{Client: client, Tier: llm.TierLite, Logger: logger}
}

// rawEvaluation accepts fractional scores; they are rounded before use.
type rawEvaluation struct {
	URL    string  `json:"url"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Evaluate never fails: when the call or the parse fails every hit gets a neutral score.
func (e *Evaluator) Evaluate(ctx context.Context, hits []types.SearchHit, risk types.RiskProfile) []types.Evaluation {
	logger := e.logger()
	if len(hits) == 0 {
		return []types.Evaluation{}
	}
	logger.Info("evaluating search results", zap.Int("count", len(hits)), zap.String("risk", string(risk.Normalize())))

	system := prompts.MustGet(promptFile, "evaluate-system")
	user := BuildEvaluationPrompt(hits, risk)

	reply, err := e.Client.Complete(ctx, system, user, e.Tier)
	if err != nil {
		logger.Error("evaluation call failed", zap.Error(err))
		return Fallback(hits, prompts.MustGet(promptFile, "fallback-call-reason"))
	}

	evals, err := ParseEvaluations(reply)
	if err != nil {
		logger.Warn("evaluation reply unparseable", zap.Error(err))
		logger.Debug("raw evaluation reply", zap.String("reply", reply))
		return Fallback(hits, prompts.MustGet(promptFile, "fallback-parse-reason"))
	}

	logger.Info("evaluation parsed", zap.Int("evaluations", len(evals)))
	return evals
}

func (e *Evaluator) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// BuildEvaluationPrompt enumerates the hits and appends the risk description.
func BuildEvaluationPrompt(hits []types.SearchHit, risk types.RiskProfile) string {
	var sb strings.Builder
	for i, hit := range hits {
		title := hit.Title
		if title == "" {
			title = types.UnknownTitle
		}
		abstract := hit.Abstract
		if abstract == "" {
			abstract = "无摘要"
		}
		sb.WriteString(fmt.Sprintf("结果 %d:\n", i+1))
		sb.WriteString(fmt.Sprintf("标题: %s\n", title))
		sb.WriteString(fmt.Sprintf("摘要: %s\n", abstract))
		sb.WriteString(fmt.Sprintf("URL: %s\n", hit.URL))
		sb.WriteString(strings.Repeat("-", 40) + "\n")
	}

	template := prompts.MustGet(promptFile, "evaluate-user")
	return prompts.Format(template, map[string]string{
		"SearchResults": sb.String(),
		"RiskProfile":   RiskDescription(risk),
	})
}

// RiskDescription returns the evaluation wording for a risk profile; unknown profiles read as medium.
func RiskDescription(risk types.RiskProfile) string {
	return prompts.Risk(promptFile, risk)
}

// ParseEvaluations reads the oracle reply. A fenced block is preferred; otherwise the
// whole reply must be the JSON array. Scores are rounded and clamped to [0, 10] and
// a repeated URL keeps its last evaluation.
func ParseEvaluations(reply string) ([]types.Evaluation, error) {
	payload, ok := llm.ExtractFencedBlock(reply)
	if !ok {
		payload = strings.TrimSpace(reply)
	}
	if payload == "" {
		return nil, &ParseError{Message: "empty reply", Reply: reply}
	}

	if err := schemas.ValidateEvaluations(payload); err != nil {
		return nil, &ParseError{Message: "reply does not match evaluation schema", Reply: reply, Cause: err}
	}

	var raw []rawEvaluation
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, &ParseError{Message: "failed to decode evaluations", Reply: reply, Cause: err}
	}

	index := make(map[string]int, len(raw))
	evals := make([]types.Evaluation, 0, len(raw))
	for _, r := range raw {
		ev := types.Evaluation{
			URL:    strings.TrimSpace(r.URL),
			Score:  clampScore(r.Score),
			Reason: r.Reason,
		}
		if i, seen := index[ev.URL]; seen {
			evals[i] = ev
			continue
		}
		index[ev.URL] = len(evals)
		evals = append(evals, ev)
	}
	return evals, nil
}

// Fallback gives every hit the neutral score with reason.
func Fallback(hits []types.SearchHit, reason string) []types.Evaluation {
	evals := make([]types.Evaluation, len(hits))
	for i, hit := range hits {
		evals[i] = types.Evaluation{URL: hit.URL, Score: types.NeutralScore, Reason: reason}
	}
	return evals
}

func clampScore(score float64) int {
	s := int(math.Round(score))
	if s < types.MinScore {
		return types.MinScore
	}
	if s > types.MaxScore {
		return types.MaxScore
	}
	return s
}
