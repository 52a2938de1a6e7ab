package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/stock-research-agent/internal/pipeline"
	"github.com/jonathan/stock-research-agent/internal/types"
)

// MarketRequest represents the request body for /analyze/market
type MarketRequest struct {
	Queries []string `json:"queries,omitempty" validate:"omitempty,max=20,dive,required"`
	Risk    string   `json:"risk,omitempty" validate:"omitempty,oneof=low medium high"`
	MaxURLs int      `json:"max_urls,omitempty" validate:"omitempty,min=1,max=50"`
}

// StockRequest represents the request body for /analyze/stock
type StockRequest struct {
	MarketRequest
	Code string `json:"code" validate:"required,max=16"`
	Name string `json:"name,omitempty" validate:"max=64"`
}

func (r MarketRequest) options() pipeline.RunOptions {
	return pipeline.RunOptions{
		Queries:     r.Queries,
		RiskProfile: types.RiskProfile(r.Risk),
		MaxURLs:     r.MaxURLs,
	}
}

func (r StockRequest) subject() types.Subject {
	return types.Subject{Code: r.Code, Name: r.Name}
}

// decode reads and validates a JSON request body
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	if err := s.validator.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func (s *Server) decodeStock(r *http.Request) (StockRequest, error) {
	var req StockRequest
	if err := s.decode(r, &req); err != nil {
		return req, err
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		return req, &ErrValidation{Field: "Code", Message: "required"}
	}
	return req, nil
}

// handleAnalyzeStock runs a single-stock analysis and returns the result
func (s *Server) handleAnalyzeStock(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeStock(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.respond(r.Context(), w, req.options(), func(ctx context.Context, opts pipeline.RunOptions) (*types.AdviceResult, error) {
		return s.agent.AnalyzeStock(ctx, req.subject(), opts)
	})
}

// handleAnalyzeMarket runs a market analysis and returns the result
func (s *Server) handleAnalyzeMarket(w http.ResponseWriter, r *http.Request) {
	var req MarketRequest
	if err := s.decode(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.respond(r.Context(), w, req.options(), s.agent.AnalyzeMarket)
}

// handleAnalyzeStockStream runs a single-stock analysis and streams progress via SSE
func (s *Server) handleAnalyzeStockStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeStock(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.stream(r.Context(), w, req.options(), func(ctx context.Context, opts pipeline.RunOptions) (*types.AdviceResult, error) {
		return s.agent.AnalyzeStock(ctx, req.subject(), opts)
	})
}

// handleAnalyzeMarketStream runs a market analysis and streams progress via SSE
func (s *Server) handleAnalyzeMarketStream(w http.ResponseWriter, r *http.Request) {
	var req MarketRequest
	if err := s.decode(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.stream(r.Context(), w, req.options(), s.agent.AnalyzeMarket)
}

type analysisFunc func(ctx context.Context, opts pipeline.RunOptions) (*types.AdviceResult, error)

func (s *Server) respond(ctx context.Context, w http.ResponseWriter, opts pipeline.RunOptions, analyze analysisFunc) {
	res, err := analyze(ctx, opts)
	if err != nil {
		s.logger.Warn("analysis failed", zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) stream(ctx context.Context, w http.ResponseWriter, opts pipeline.RunOptions, analyze analysisFunc) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	opts.OnProgress = func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("step", event); err != nil {
			s.logger.Debug("writing SSE event", zap.Error(err))
		}
	}

	res, err := analyze(ctx, opts)
	if err != nil {
		s.logger.Warn("streaming analysis failed", zap.Error(err))
		sse.WriteError(HTTPStatus(err), err.Error())
		return
	}
	sse.WriteComplete(res)
}
