package model

import "time"

// SubmissionStatus is the lifecycle state owned by the backend.
type SubmissionStatus string

// Submission lifecycle states.
const (
	StatusDraft       SubmissionStatus = "DRAFT"
	StatusSubmitted   SubmissionStatus = "SUBMITTED"
	StatusUnderReview SubmissionStatus = "UNDER_REVIEW"
	StatusEvaluated   SubmissionStatus = "EVALUATED"
	StatusRejected    SubmissionStatus = "REJECTED"
)

// Valid reports whether s is a known status.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusEvaluated, StatusRejected:
		return true
	}
	return false
}

// Public reports whether a submission in this state may appear on the public leaderboard.
func (s SubmissionStatus) Public() bool {
	return s == StatusEvaluated
}

// Submission is a team's entry for a challenge. FinalScore mirrors the
// backend's puntajeFinal column and is only ever written from computed scores.
type Submission struct {
	ID          string           `json:"id" yaml:"id" db:"id" validate:"required"`
	TeamID      string           `json:"teamId" yaml:"teamId" db:"team_id" validate:"required"`
	ChallengeID string           `json:"challengeId" yaml:"challengeId" db:"challenge_id" validate:"required"`
	Status      SubmissionStatus `json:"status" yaml:"status" db:"status" validate:"required,status"`
	CreatedAt   time.Time        `json:"createdAt" yaml:"createdAt" db:"created_at"`
	FinalScore  *float64         `json:"puntajeFinal,omitempty" yaml:"puntajeFinal,omitempty" db:"puntaje_final"`
}
