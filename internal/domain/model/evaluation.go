package model

import "time"

// Evaluation is one judge's score against one rubric for one team's submission.
type Evaluation struct {
	ID           string    `json:"id" yaml:"id" db:"id"`
	RubricID     string    `json:"rubricId" yaml:"rubricId" db:"rubric_id" validate:"required"`
	TeamID       string    `json:"teamId" yaml:"teamId" db:"team_id" validate:"required"`
	SubmissionID string    `json:"submissionId" yaml:"submissionId" db:"submission_id"`
	JudgeID      string    `json:"juezId" yaml:"juezId" db:"juez_id" validate:"required"`
	Score        float64   `json:"calificacion" yaml:"calificacion" db:"calificacion"`
	Comments     string    `json:"comentarios,omitempty" yaml:"comentarios,omitempty" db:"comentarios" validate:"max=4000"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt" db:"created_at"`
}

// EvaluationsByTeam groups evaluations by team id, preserving input order.
func EvaluationsByTeam(evals []Evaluation) map[string][]Evaluation {
	out := make(map[string][]Evaluation)
	for _, e := range evals {
		out[e.TeamID] = append(out[e.TeamID], e)
	}
	return out
}
