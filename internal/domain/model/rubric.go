// Package model contains domain models passed between layers.
package model

// Rubric is a weighted evaluation criterion scoped to one challenge.
// Field names follow Go conventions; JSON tags keep the backend's wire names.
type Rubric struct {
	ID          string  `json:"id" yaml:"id" db:"id" validate:"required"`
	ChallengeID string  `json:"challengeId" yaml:"challengeId" db:"challenge_id" validate:"required"`
	Name        string  `json:"nombre" yaml:"nombre" db:"nombre" validate:"required,max=255"`
	ScaleMin    float64 `json:"escalaMinima" yaml:"escalaMinima" db:"escala_minima" validate:"gte=0"`
	ScaleMax    float64 `json:"escalaMaxima" yaml:"escalaMaxima" db:"escala_maxima" validate:"gtfield=ScaleMin"`
	Percentage  float64 `json:"porcentaje" yaml:"porcentaje" db:"porcentaje" validate:"gte=0,lte=100"`
}

// Width returns the span of the rubric's scale.
func (r Rubric) Width() float64 {
	return r.ScaleMax - r.ScaleMin
}

// Degenerate reports whether the scale has zero width.
func (r Rubric) Degenerate() bool {
	return r.ScaleMax == r.ScaleMin
}

// Contains reports whether v lies inside the rubric's closed scale.
func (r Rubric) Contains(v float64) bool {
	return v >= r.ScaleMin && v <= r.ScaleMax
}
