package pipeline

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/stock-research-agent/internal/llm"
	"github.com/jonathan/stock-research-agent/internal/pipeline/steps"
	"github.com/jonathan/stock-research-agent/internal/store"
	"github.com/jonathan/stock-research-agent/internal/types"
)

type recordedRun struct {
	kind, subject string
	risk          types.RiskProfile
	steps         []string
	categories    map[string]string
	finished      bool
	result        *types.AdviceResult
	err           error
}

// fakeRecorder keeps run history in memory.
type fakeRecorder struct {
	mu       sync.Mutex
	runs     map[string]*recordedRun
	startErr error
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{runs: map[string]*recordedRun{}}
}

func (f *fakeRecorder) StartRun(_ context.Context, runID, kind, subject string, risk types.RiskProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.runs[runID] = &recordedRun{kind: kind, subject: subject, risk: risk, categories: map[string]string{}}
	return nil
}

func (f *fakeRecorder) SaveArtifact(_ context.Context, runID, step, category string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.runs[runID]
	r.steps = append(r.steps, step)
	r.categories[step] = category
	return nil
}

func (f *fakeRecorder) CompleteRun(_ context.Context, runID string, res *types.AdviceResult, runErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.runs[runID]
	r.finished = true
	r.result = res
	r.err = runErr
	return nil
}

func TestHistory_RecordsStockRun(t *testing.T) {
	env := newTestEnv(t, fullHits)
	env.client.Replies[llm.TierLite] = evaluationReply(env.server)
	rec := newFakeRecorder()
	env.agent.History = rec

	res, err := env.agent.AnalyzeStock(context.Background(), types.Subject{Code: "000001", Name: "平安银行"}, RunOptions{})
	require.NoError(t, err)

	run := rec.runs["run-1"]
	require.NotNil(t, run)
	assert.Equal(t, types.RunKindStock, run.kind)
	assert.Equal(t, "平安银行(000001)", run.subject)
	assert.Equal(t, types.RiskLow, run.risk)

	// synthesize reports no content of its own; its text lands in the save artifact
	assert.Equal(t, []string{
		steps.StepSearch, steps.StepEvaluate, steps.StepFilter,
		steps.StepFetch, steps.StepExtract, steps.StepSave,
	}, run.steps)
	assert.Equal(t, steps.CategoryEvaluation, run.categories[steps.StepFilter])

	assert.True(t, run.finished)
	assert.NoError(t, run.err)
	assert.Same(t, res, run.result)
}

func TestHistory_RecordsFailure(t *testing.T) {
	env := newTestEnv(t, func(*httptest.Server, string) []types.SearchHit { return nil })
	rec := newFakeRecorder()
	env.agent.History = rec

	_, err := env.agent.AnalyzeMarket(context.Background(), RunOptions{})
	require.Error(t, err)

	run := rec.runs["run-1"]
	require.NotNil(t, run)
	assert.Equal(t, types.RunKindMarket, run.kind)
	assert.Empty(t, run.subject)
	assert.Empty(t, run.steps)
	assert.True(t, run.finished)
	assert.ErrorIs(t, run.err, ErrNoURLs)
	assert.Nil(t, run.result)
}

func TestHistory_StartFailureDisablesRecording(t *testing.T) {
	env := newTestEnv(t, fullHits)
	env.client.Replies[llm.TierLite] = evaluationReply(env.server)
	rec := newFakeRecorder()
	rec.startErr = errors.New("connection refused")
	env.agent.History = rec

	_, err := env.agent.AnalyzeStock(context.Background(), types.Subject{Code: "000001"}, RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, rec.runs)
}

func TestHistory_FileStore(t *testing.T) {
	env := newTestEnv(t, fullHits)
	env.client.Replies[llm.TierLite] = evaluationReply(env.server)
	history := store.NewHistory(filepath.Join(t.TempDir(), "runs"))
	env.agent.History = history

	ctx, cancel := context.WithCancel(context.Background())
	res, err := env.agent.AnalyzeStock(ctx, types.Subject{Code: "000001", Name: "平安银行"}, RunOptions{})
	require.NoError(t, err)
	cancel()

	run, err := history.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, types.RunStatusCompleted, run.Status)
	assert.Equal(t, res.OutputFile, run.OutputFile)
	assert.Equal(t, res.SourceURLs, run.Sources)

	artifacts, err := history.ListArtifacts(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Len(t, artifacts, 6)
}
