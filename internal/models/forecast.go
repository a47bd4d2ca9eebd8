package models

import (
	"fmt"
	"time"
)

// Forecast holds point forecasts and interval bounds for h future periods.
// The three slices are positionally aligned.
type Forecast struct {
	Method string    `json:"method"`
	Level  int       `json:"level"`
	Point  []float64 `json:"point"`
	Upper  []float64 `json:"upper"`
	Lower  []float64 `json:"lower"`
}

// CheckAligned verifies all three sequences have length horizon.
func (f Forecast) CheckAligned(horizon int) error {
	if len(f.Point) != horizon || len(f.Upper) != horizon || len(f.Lower) != horizon {
		return fmt.Errorf("forecast lengths point=%d upper=%d lower=%d, want %d",
			len(f.Point), len(f.Upper), len(f.Lower), horizon)
	}
	return nil
}

// MergedRow is one row of the historical-plus-forecast table. Historical rows
// carry only Actual; future rows carry only the forecast columns.
type MergedRow struct {
	Time     time.Time `json:"time"`
	Actual   *float64  `json:"actual"`
	Forecast *float64  `json:"forecast"`
	Upper    *float64  `json:"upper"`
	Lower    *float64  `json:"lower"`
}

// Window is the default visible range of a chart.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
