package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/irfndi/foresight-go/internal/models"
	"github.com/irfndi/foresight-go/internal/period"
)

// ErrOverlap is returned when historical and future timestamps coincide.
var ErrOverlap = errors.New("historical and future timestamps overlap")

// DefaultLookbackMonths is how far before the range end a forecast chart's
// default window starts.
const DefaultLookbackMonths = 6

// FutureTimestamps returns horizon dates stepping from end by unit. The first
// date is one step after end.
func FutureTimestamps(end time.Time, unit period.Unit, horizon int) ([]time.Time, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	return unit.Sequence(end, horizon), nil
}

// Merge outer-joins history (as Actual) with the forecast placed on future.
// Rows are returned in ascending time order.
func Merge(history models.Series, future []time.Time, fc models.Forecast) ([]models.MergedRow, error) {
	if err := fc.CheckAligned(len(future)); err != nil {
		return nil, err
	}
	if err := history.CheckOrdered(); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	for i := 1; i < len(future); i++ {
		if !future[i].After(future[i-1]) {
			return nil, fmt.Errorf("future timestamps not strictly increasing at index %d", i)
		}
	}

	rows := make([]models.MergedRow, 0, history.Len()+len(future))
	h, f := 0, 0
	for h < history.Len() || f < len(future) {
		switch {
		case f == len(future) || (h < history.Len() && history.Points[h].Time.Before(future[f])):
			v := history.Points[h].Value
			rows = append(rows, models.MergedRow{Time: history.Points[h].Time, Actual: &v})
			h++
		case h == history.Len() || future[f].Before(history.Points[h].Time):
			point, upper, lower := fc.Point[f], fc.Upper[f], fc.Lower[f]
			rows = append(rows, models.MergedRow{Time: future[f], Forecast: &point, Upper: &upper, Lower: &lower})
			f++
		default:
			return nil, fmt.Errorf("%w at %s", ErrOverlap, future[f].Format(models.DateLayout))
		}
	}
	return rows, nil
}

// Window returns the default visible range [end - lookback months, last
// future date]. ok is false when there are no future dates.
func Window(end time.Time, future []time.Time, lookbackMonths int) (models.Window, bool) {
	if len(future) == 0 {
		return models.Window{}, false
	}
	return models.Window{
		Start: period.AddMonths(end, -lookbackMonths),
		End:   future[len(future)-1],
	}, true
}
