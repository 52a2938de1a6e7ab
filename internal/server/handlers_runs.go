package server

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// handleListRuns returns the most recent runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "run history is not configured")
		return
	}

	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing runs", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "Run history error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun returns one run
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "run history is not configured")
		return
	}

	run, err := s.runs.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error("getting run", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "Run history error: "+err.Error())
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// handleRunArtifacts returns every recorded step output of a run
func (s *Server) handleRunArtifacts(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "run history is not configured")
		return
	}

	runID := r.PathValue("id")
	run, err := s.runs.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Run history error: "+err.Error())
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}

	artifacts, err := s.runs.ListArtifacts(r.Context(), runID)
	if err != nil {
		s.logger.Error("listing artifacts", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "Run history error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"run_id":    runID,
		"artifacts": artifacts,
	})
}
