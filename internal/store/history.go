package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/stock-research-agent/internal/types"
)

// validRunID keeps ids from the HTTP API inside the history directory.
var validRunID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// runFile is the on-disk form of one run: runs/<id>.json
type runFile struct {
	types.RunRecord
	Artifacts []types.RunArtifact `json:"artifacts,omitempty"`
}

// History records runs as one JSON file each. Files are replaced atomically,
// so readers never see a partial run.
type History struct {
	Dir string
	Now func() time.Time

	mu sync.Mutex
}

// NewHistory creates a History rooted at dir.
func NewHistory(dir string) *History {
	return &History{Dir: dir, Now: time.Now}
}

func (h *History) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *History) path(runID string) (string, error) {
	if !validRunID.MatchString(runID) {
		return "", fmt.Errorf("invalid run id %q", runID)
	}
	return filepath.Join(h.Dir, runID+".json"), nil
}

// StartRun records a new running analysis.
func (h *History) StartRun(_ context.Context, runID, kind, subject string, risk types.RiskProfile) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.write(runID, &runFile{RunRecord: types.RunRecord{
		ID:          runID,
		Kind:        kind,
		Subject:     subject,
		RiskProfile: string(risk),
		Status:      types.RunStatusRunning,
		CreatedAt:   h.now(),
	}})
}

// SaveArtifact stores a step's JSON output, replacing an earlier output of the same step.
func (h *History) SaveArtifact(_ context.Context, runID, step, category string, content any) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact %s: %w", step, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	run, err := h.read(runID)
	if err != nil {
		return err
	}
	artifact := types.RunArtifact{Step: step, Category: category, Content: raw, CreatedAt: h.now()}
	replaced := false
	for i := range run.Artifacts {
		if run.Artifacts[i].Step == step {
			run.Artifacts[i] = artifact
			replaced = true
		}
	}
	if !replaced {
		run.Artifacts = append(run.Artifacts, artifact)
	}
	return h.write(runID, run)
}

// CompleteRun marks a run finished. A non-nil runErr marks it failed.
func (h *History) CompleteRun(_ context.Context, runID string, res *types.AdviceResult, runErr error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	run, err := h.read(runID)
	if err != nil {
		return err
	}
	completed := h.now()
	run.CompletedAt = &completed
	if runErr != nil {
		run.Status = types.RunStatusFailed
		run.Error = runErr.Error()
	} else {
		run.Status = types.RunStatusCompleted
		if res != nil {
			run.OutputFile = res.OutputFile
			run.Sources = res.SourceURLs
		}
	}
	return h.write(runID, run)
}

// GetRun returns one run. An unknown or malformed id is (nil, nil).
func (h *History) GetRun(_ context.Context, runID string) (*types.RunRecord, error) {
	if !validRunID.MatchString(runID) {
		return nil, nil
	}
	run, err := h.read(runID)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run.RunRecord, nil
}

// ListArtifacts returns the step outputs of a run in the order they completed.
func (h *History) ListArtifacts(_ context.Context, runID string) ([]types.RunArtifact, error) {
	if !validRunID.MatchString(runID) {
		return nil, nil
	}
	run, err := h.read(runID)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run.Artifacts, nil
}

// ListRuns returns up to limit runs, newest first.
func (h *History) ListRuns(_ context.Context, limit int) ([]types.RunRecord, error) {
	entries, err := os.ReadDir(h.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var runs []types.RunRecord
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		run, err := h.read(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		runs = append(runs, run.RunRecord)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (h *History) read(runID string) (*runFile, error) {
	path, err := h.path(runID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run %s: %w", runID, err)
	}
	var run runFile
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse run %s: %w", runID, err)
	}
	return &run, nil
}

// write replaces the run file through a temp file and rename.
func (h *History) write(runID string, run *runFile) error {
	path, err := h.path(runID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return &WriteError{Path: path, Message: "failed to encode run", Cause: err}
	}
	tmp := path + ".tmp"
	if err := writeFile(tmp, data); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return &WriteError{Path: path, Message: "failed to replace run file", Cause: err}
	}
	return nil
}
