package models

import (
	"fmt"
	"time"
)

// Point is a single dated observation.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is a time-indexed numeric series in ascending timestamp order.
type Series struct {
	SourceID string  `json:"source_id"`
	PeriodID string  `json:"period_id"`
	Points   []Point `json:"points"`
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Points) }

// Values returns the observation values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Clip returns the observations dated within [start, end] and the number
// that fell outside. The receiver is not modified.
func (s Series) Clip(start, end time.Time) (Series, int) {
	kept := make([]Point, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Time.Before(start) || p.Time.After(end) {
			continue
		}
		kept = append(kept, p)
	}
	dropped := len(s.Points) - len(kept)
	s.Points = kept
	return s, dropped
}

// CheckOrdered reports the first pair of timestamps that is not strictly increasing.
func (s Series) CheckOrdered() error {
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Time.After(s.Points[i-1].Time) {
			return fmt.Errorf("timestamp %s at index %d does not follow %s",
				s.Points[i].Time.Format(DateLayout), i, s.Points[i-1].Time.Format(DateLayout))
		}
	}
	return nil
}

// DateLayout is the ISO calendar date format used on the wire.
const DateLayout = "2006-01-02"
