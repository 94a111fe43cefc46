// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/hackscore/internal/adapters/mq/queue"
	"github.com/okian/hackscore/internal/adapters/repository"
	service "github.com/okian/hackscore/internal/app"
	"github.com/okian/hackscore/internal/domain/validation"
	"github.com/okian/hackscore/pkg/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RubricDependencies
	SubmissionDependencies
	EvaluationDependencies
	ScoreDependencies
	LeaderboardDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	rubricsHandler     *RubricsHandler
	submissionsHandler *SubmissionsHandler
	evaluationsHandler *EvaluationsHandler
	scoreHandler       *ScoreHandler
	leaderboardHandler *LeaderboardHandler

	limiter *RateLimiter
	logger  logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.rubricsHandler = NewRubricsHandler(deps, s.logger)
	s.submissionsHandler = NewSubmissionsHandler(deps, s.logger)
	s.evaluationsHandler = NewEvaluationsHandler(deps, s.logger)
	s.scoreHandler = NewScoreHandler(deps, s.logger)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.Handle("GET /healthz", s.route("healthz", s.healthHandler.HandleHealth, false))
	mux.Handle("GET /stats", s.route("stats", s.statsHandler.HandleStats, false))

	mux.Handle("PUT /rubrics", s.route("rubrics", s.rubricsHandler.HandlePut, true))
	mux.Handle("PUT /submissions", s.route("submissions", s.submissionsHandler.HandlePut, true))
	mux.Handle("GET /submissions/{id}", s.route("submission", s.submissionsHandler.HandleGet, true))
	mux.Handle("POST /evaluations", s.route("evaluations", s.evaluationsHandler.HandlePost, true))
	mux.Handle("GET /challenges/{challengeID}/teams/{teamID}/score", s.route("team_score", s.scoreHandler.HandleGet, true))
	mux.Handle("GET /challenges/{challengeID}/leaderboard", s.route("leaderboard", s.leaderboardHandler.HandleGet, true))
}

// route wraps h with request id, metrics and, when limited, the rate limiter.
func (s *Server) route(endpoint string, h http.HandlerFunc, limited bool) http.Handler {
	next := h
	if limited && s.limiter != nil {
		next = s.limiter.Middleware(next)
	}
	return RequestIDMiddleware(MetricsMiddleware(next, endpoint))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// classify maps an upstream error onto an API error kind.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, validation.ErrInvalidRubric),
		errors.Is(err, validation.ErrInvalidSubmission),
		errors.Is(err, validation.ErrInvalidEvaluation),
		errors.Is(err, validation.ErrScoreOutOfRange),
		errors.Is(err, validation.ErrRubricMismatch),
		errors.Is(err, repository.ErrInvalidLimit):
		return ErrBadRequest
	case errors.Is(err, ErrConflict), errors.Is(err, validation.ErrWeightsExceeded):
		return ErrConflict
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrFull):
		return ErrBackpressure
	case errors.Is(err, ErrRateLimited):
		return ErrRateLimited
	case errors.Is(err, ErrUnavailable), errors.Is(err, service.ErrNotStarted), errors.Is(err, queue.ErrClosed):
		return ErrUnavailable
	}
	return nil
}

// statusFor returns the HTTP status and error code for kind.
func statusFor(kind error) (int, string) {
	switch kind {
	case ErrBadRequest:
		return http.StatusBadRequest, "bad_request"
	case ErrConflict:
		return http.StatusConflict, "conflict"
	case ErrNotFound:
		return http.StatusNotFound, "not_found"
	case ErrBackpressure:
		return http.StatusTooManyRequests, "backpressure"
	case ErrRateLimited:
		return http.StatusTooManyRequests, "rate_limited"
	case ErrUnavailable:
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// fail writes err with the status its kind maps to. Server errors are logged.
func fail(ctx context.Context, log logger.Logger, w http.ResponseWriter, op string, err error) {
	kind := classify(err)
	status, code := statusFor(kind)
	if kind == nil {
		log.Error(ctx, "request failed", logger.Error(Wrap(op, err)))
		writeError(w, status, code, NewKind(op, errors.New(http.StatusText(status))))
		return
	}
	writeError(w, status, code, WrapKind(op, kind, err))
}
