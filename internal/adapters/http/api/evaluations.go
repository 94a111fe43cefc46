package api

import (
	"context"
	"net/http"

	service "github.com/okian/hackscore/internal/app"
	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/pkg/logger"
)

// EvaluationDependencies defines the interface for evaluation intake.
type EvaluationDependencies interface {
	SubmitEvaluation(ctx context.Context, e model.Evaluation) (service.Receipt, error)
}

// EvaluationsHandler handles evaluation requests.
type EvaluationsHandler struct {
	deps   EvaluationDependencies
	logger logger.Logger
}

type ackResponse struct {
	Status       string `json:"status"`
	EvaluationID string `json:"evaluationId"`
	Duplicate    bool   `json:"duplicate"`
}

// NewEvaluationsHandler creates a new evaluations handler.
func NewEvaluationsHandler(deps EvaluationDependencies, l logger.Logger) *EvaluationsHandler {
	return &EvaluationsHandler{deps: deps, logger: l}
}

// HandlePost handles POST /evaluations requests. Accepted evaluations are
// scored asynchronously; a repeated id is acknowledged without requeueing.
func (h *EvaluationsHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_evaluation"
	var req model.Evaluation
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	receipt, err := h.deps.SubmitEvaluation(r.Context(), req)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	if receipt.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EvaluationID: receipt.EvaluationID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EvaluationID: receipt.EvaluationID})
}
