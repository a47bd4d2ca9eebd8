package forecast

import (
	"context"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/irfndi/foresight-go/internal/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Naive repeats the last observation. The interval uses the root mean square
// of one-step changes.
type Naive struct {
	level int
	z     float64
}

func (n *Naive) Name() string { return "naive" }

func (n *Naive) Forecast(ctx context.Context, history []float64, horizon int) (models.Forecast, error) {
	if err := precheck(ctx, n.Name(), history, horizon, 2); err != nil {
		return models.Forecast{}, err
	}

	last := history[len(history)-1]
	point := make([]float64, horizon)
	for i := range point {
		point[i] = last
	}
	return band(n.Name(), n.level, n.z, rms(diff(history)), point)
}

// Drift extends the last observation by the mean one-step change.
type Drift struct {
	level int
	z     float64
}

func (d *Drift) Name() string { return "drift" }

func (d *Drift) Forecast(ctx context.Context, history []float64, horizon int) (models.Forecast, error) {
	if err := precheck(ctx, d.Name(), history, horizon, 3); err != nil {
		return models.Forecast{}, err
	}

	changes := diff(history)
	slope := stat.Mean(changes, nil)
	last := history[len(history)-1]

	point := make([]float64, horizon)
	for i := range point {
		point[i] = last + float64(i+1)*slope
	}
	return band(d.Name(), d.level, d.z, stddev(changes), point)
}

// EMA projects an exponentially smoothed level along an exponentially
// smoothed trend of one-step changes.
type EMA struct {
	level  int
	z      float64
	period int
}

func (e *EMA) Name() string { return "ema" }

func (e *EMA) Forecast(ctx context.Context, history []float64, horizon int) (models.Forecast, error) {
	if err := precheck(ctx, e.Name(), history, horizon, e.period+1); err != nil {
		return models.Forecast{}, err
	}

	smoothed := computeEMA(history, e.period)
	trendline := computeEMA(diff(history), e.period)
	if len(smoothed) < 2 || len(trendline) == 0 {
		return models.Forecast{}, &ForecastError{Method: e.Name(), Reason: "moving average produced no output"}
	}

	// EMA output is aligned to the tail of its input.
	offset := len(history) - len(smoothed)
	residuals := make([]float64, len(smoothed))
	for i, s := range smoothed {
		residuals[i] = history[offset+i] - s
	}

	levelNow := smoothed[len(smoothed)-1]
	slope := trendline[len(trendline)-1]

	point := make([]float64, horizon)
	for i := range point {
		point[i] = levelNow + float64(i+1)*slope
	}
	return band(e.Name(), e.level, e.z, stddev(residuals), point)
}

func computeEMA(values []float64, period int) []float64 {
	ema := trend.NewEmaWithPeriod[float64](period)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(values)))
}

func diff(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i] - values[i-1]
	}
	return out
}

// stddev is the sample standard deviation. Fewer than two values yield 0.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// rms is the root mean square, the spread of changes around zero.
func rms(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Norm(values, 2) / math.Sqrt(float64(len(values)))
}
