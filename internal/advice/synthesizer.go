// Package advice turns extracted document information into the final narrative:
// investment advice for a subject or a market-wide analysis.
package advice

import (
	"context"
	"fmt"

	"github.com/jonathan/stock-research-agent/internal/llm"
	"github.com/jonathan/stock-research-agent/internal/prompts"
	"github.com/jonathan/stock-research-agent/internal/types"
	"go.uber.org/zap"
)

const (
	promptFile = "advice.json"
	// DefaultSummaryBudget caps the summary text in the synthesis prompt.
	DefaultSummaryBudget = 14000
	// TruncationMarker is appended to a summary cut at the budget.
	TruncationMarker = "..."
)

// Mode selects the synthesis prompt pair.
type Mode string

// Supported modes
const (
	ModeInvestment Mode = "investment"
	ModeMarket     Mode = "market"
)

// Synthesizer issues one oracle call over all extracted documents.
type Synthesizer struct {
	Client        llm.Client
	Tier          llm.ModelTier
	Mode          Mode
	SummaryBudget int
	Logger        *zap.Logger
}

// NewSynthesizer creates a Synthesizer on the advanced tier.
func NewSynthesizer(client llm.Client, mode Mode, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		Client:        client,
		Tier:          llm.TierAdvanced,
		Mode:          mode,
		SummaryBudget: DefaultSummaryBudget,
		Logger:        logger,
	}
}

// Synthesize always returns displayable text; failures come back as a user-facing message.
func (s *Synthesizer) Synthesize(ctx context.Context, docs []types.ExtractedInfo, risk types.RiskProfile) string {
	text, _ := s.Generate(ctx, docs, risk)
	return text
}

// Generate is Synthesize that also reports the oracle error. The returned text is
// displayable in every case.
func (s *Synthesizer) Generate(ctx context.Context, docs []types.ExtractedInfo, risk types.RiskProfile) (string, error) {
	logger := s.logger()
	if len(docs) == 0 {
		logger.Warn("no documents to synthesize")
		return s.noDocuments(), nil
	}
	risk = risk.Normalize()
	logger.Info("synthesizing", zap.String("mode", string(s.mode())), zap.Int("documents", len(docs)), zap.String("risk", string(risk)))

	system, user := s.BuildPrompts(docs, risk)
	reply, err := s.Client.Complete(ctx, system, user, s.Tier)
	if err != nil {
		logger.Error("synthesis call failed", zap.Error(err))
		return prompts.Format(prompts.MustGet(promptFile, "error-"+string(s.mode())), map[string]string{
			"Error": err.Error(),
		}), err
	}

	logger.Info("synthesis complete", zap.Int("chars", len([]rune(reply))))
	return reply, nil
}

// BuildPrompts returns the system and user prompts for docs.
func (s *Synthesizer) BuildPrompts(docs []types.ExtractedInfo, risk types.RiskProfile) (string, string) {
	budget := s.SummaryBudget
	if budget <= 0 {
		budget = DefaultSummaryBudget
	}
	summary, truncated := llm.TruncateRunes(BuildSummary(docs), budget, TruncationMarker)
	if truncated {
		s.logger().Info("summary truncated", zap.Int("budget", budget))
	}

	mode := s.mode()
	system := prompts.MustGet(promptFile, string(mode)+"-system")
	user := prompts.Format(prompts.MustGet(promptFile, string(mode)+"-user"), map[string]string{
		"Summary": summary,
	})
	return system, fmt.Sprintf("%s\n\n%s", user, RiskDescription(risk))
}

// RiskDescription returns the first-person risk statement appended to synthesis prompts.
func RiskDescription(risk types.RiskProfile) string {
	return prompts.Risk(promptFile, risk)
}

func (s *Synthesizer) noDocuments() string {
	if s.mode() == ModeMarket {
		return prompts.MustGet(promptFile, "no-documents-market")
	}
	return prompts.MustGet(promptFile, "no-documents")
}

func (s *Synthesizer) mode() Mode {
	if s.Mode == ModeMarket {
		return ModeMarket
	}
	return ModeInvestment
}

func (s *Synthesizer) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
