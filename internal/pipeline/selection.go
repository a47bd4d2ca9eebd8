package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSelection matches every selection validation failure.
var ErrInvalidSelection = errors.New("invalid selection")

// DefaultMaxHorizon bounds the horizon when no limit is configured.
const DefaultMaxHorizon = 100

// Selection is the complete set of user inputs for one recompute. A change to
// any field replaces the whole selection.
type Selection struct {
	SourceID string    `json:"source_id"`
	PeriodID string    `json:"period_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Horizon  int       `json:"horizon"`
}

// Limits bounds user-controlled selection fields.
type Limits struct {
	MaxHorizon int
}

// ValidationError names the offending selection field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidSelection
}

// Validate checks the selection against limits.
func (s Selection) Validate(limits Limits) error {
	maxHorizon := limits.MaxHorizon
	if maxHorizon <= 0 {
		maxHorizon = DefaultMaxHorizon
	}

	switch {
	case s.SourceID == "":
		return &ValidationError{Field: "source", Reason: "must not be empty"}
	case s.PeriodID == "":
		return &ValidationError{Field: "period", Reason: "must not be empty"}
	case s.Start.IsZero() || s.End.IsZero():
		return &ValidationError{Field: "range", Reason: "start and end are required"}
	case s.End.Before(s.Start):
		return &ValidationError{Field: "range", Reason: "end precedes start"}
	case s.Horizon < 1 || s.Horizon > maxHorizon:
		return &ValidationError{Field: "horizon", Reason: fmt.Sprintf("must be between 1 and %d, got %d", maxHorizon, s.Horizon)}
	}
	return nil
}
