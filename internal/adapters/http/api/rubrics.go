package api

import (
	"context"
	"net/http"

	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/pkg/logger"
)

// RubricDependencies defines the interface for rubric intake.
type RubricDependencies interface {
	UpsertRubric(ctx context.Context, r model.Rubric) (model.Rubric, error)
}

// RubricsHandler handles rubric requests.
type RubricsHandler struct {
	deps   RubricDependencies
	logger logger.Logger
}

// NewRubricsHandler creates a new rubrics handler.
func NewRubricsHandler(deps RubricDependencies, l logger.Logger) *RubricsHandler {
	return &RubricsHandler{deps: deps, logger: l}
}

// HandlePut handles PUT /rubrics requests.
func (h *RubricsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_rubric"
	var req model.Rubric
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	stored, err := h.deps.UpsertRubric(r.Context(), req)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}
