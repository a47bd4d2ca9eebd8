package testutil

import (
	"time"

	"github.com/irfndi/foresight-go/internal/models"
	"github.com/irfndi/foresight-go/internal/period"
)

// MonthlySeries returns month-end observations within [start, end] with a
// deterministic saw-tooth value pattern.
func MonthlySeries(sourceID string, start, end time.Time) models.Series {
	series := models.Series{SourceID: sourceID, PeriodID: "monthly"}
	origin := time.Date(start.Year(), start.Month(), 0, 0, 0, 0, 0, time.UTC)
	for i := 1; ; i++ {
		t := period.Months.Add(origin, i)
		if t.After(end) {
			break
		}
		if t.Before(start) {
			continue
		}
		series.Points = append(series.Points, models.Point{Time: t, Value: 40 + float64(i%13)})
	}
	return series
}
