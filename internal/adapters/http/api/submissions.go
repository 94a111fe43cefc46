package api

import (
	"context"
	"net/http"

	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/pkg/logger"
)

// SubmissionDependencies defines the interface for submission intake and lookup.
type SubmissionDependencies interface {
	UpsertSubmission(ctx context.Context, s model.Submission) (model.Submission, error)
	Submission(ctx context.Context, id string) (model.Submission, error)
}

// SubmissionsHandler handles submission requests.
type SubmissionsHandler struct {
	deps   SubmissionDependencies
	logger logger.Logger
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps SubmissionDependencies, l logger.Logger) *SubmissionsHandler {
	return &SubmissionsHandler{deps: deps, logger: l}
}

// HandlePut handles PUT /submissions requests. A client supplied
// puntajeFinal is ignored; the stored value is always computed.
func (h *SubmissionsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_submission"
	var req model.Submission
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	stored, err := h.deps.UpsertSubmission(r.Context(), req)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// HandleGet handles GET /submissions/{id} requests.
func (h *SubmissionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_submission"
	sub, err := h.deps.Submission(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
