package api

import (
	"context"
	"net/http"

	"github.com/okian/hackscore/internal/domain/scoring"
	"github.com/okian/hackscore/pkg/logger"
)

// ScoreDependencies defines the interface for team score reads.
type ScoreDependencies interface {
	TeamScore(ctx context.Context, challengeID, teamID string) (scoring.TeamScore, error)
}

// ScoreHandler handles team score requests.
type ScoreHandler struct {
	deps   ScoreDependencies
	logger logger.Logger
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies, l logger.Logger) *ScoreHandler {
	return &ScoreHandler{deps: deps, logger: l}
}

// HandleGet handles GET /challenges/{challengeID}/teams/{teamID}/score requests.
func (h *ScoreHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_team_score"
	ts, err := h.deps.TeamScore(r.Context(), r.PathValue("challengeID"), r.PathValue("teamID"))
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}
