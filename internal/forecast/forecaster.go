// Package forecast provides pluggable point-and-interval forecasting
// strategies over a univariate history.
package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/irfndi/foresight-go/internal/config"
	"github.com/irfndi/foresight-go/internal/models"
	"gonum.org/v1/gonum/stat/distuv"
)

// Forecaster produces point forecasts with upper and lower bounds for
// horizon future periods.
type Forecaster interface {
	Name() string
	Forecast(ctx context.Context, history []float64, horizon int) (models.Forecast, error)
}

// supportedLevels are the two-sided interval levels offered to callers.
var supportedLevels = map[int]bool{80: true, 95: true}

// ZScore returns the standard normal quantile for a two-sided interval level.
func ZScore(level int) (float64, error) {
	if !supportedLevels[level] {
		return 0, fmt.Errorf("unsupported interval level %d", level)
	}
	return distuv.UnitNormal.Quantile(0.5 + float64(level)/200), nil
}

// Options tune the built-in strategies.
type Options struct {
	Level     int
	EMAPeriod int
}

// OptionsFromConfig maps forecast configuration onto strategy options.
func OptionsFromConfig(cfg config.ForecastConfig) Options {
	return Options{Level: cfg.Level, EMAPeriod: cfg.EMAPeriod}
}

// Registry holds forecasters by name.
type Registry struct {
	strategies map[string]Forecaster
}

// NewRegistry registers the built-in strategies.
func NewRegistry(opts Options) (*Registry, error) {
	z, err := ZScore(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.EMAPeriod <= 0 {
		opts.EMAPeriod = 12
	}

	r := &Registry{strategies: make(map[string]Forecaster)}
	r.Register(&Naive{level: opts.Level, z: z})
	r.Register(&Drift{level: opts.Level, z: z})
	r.Register(&EMA{level: opts.Level, z: z, period: opts.EMAPeriod})
	return r, nil
}

// Register adds or replaces a strategy.
func (r *Registry) Register(f Forecaster) {
	r.strategies[f.Name()] = f
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (Forecaster, error) {
	f, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown forecast method %q (available: %v)", name, r.Names())
	}
	return f, nil
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// band builds a forecast whose half-width grows with sqrt(h).
func band(method string, level int, z, sigma float64, point []float64) (models.Forecast, error) {
	fc := models.Forecast{
		Method: method,
		Level:  level,
		Point:  point,
		Upper:  make([]float64, len(point)),
		Lower:  make([]float64, len(point)),
	}
	for i, p := range point {
		half := z * sigma * math.Sqrt(float64(i+1))
		fc.Upper[i] = p + half
		fc.Lower[i] = p - half
		if !finite(p) || !finite(fc.Upper[i]) || !finite(fc.Lower[i]) {
			return models.Forecast{}, &ForecastError{Method: method, Reason: fmt.Sprintf("non-finite output at step %d", i+1)}
		}
	}
	return fc, nil
}

// precheck validates inputs shared by every strategy.
func precheck(ctx context.Context, method string, history []float64, horizon, minLen int) error {
	if err := ctx.Err(); err != nil {
		return &ForecastError{Method: method, Reason: "canceled", Err: err}
	}
	if horizon <= 0 {
		return &ForecastError{Method: method, Reason: fmt.Sprintf("horizon must be positive, got %d", horizon)}
	}
	if len(history) < minLen {
		return &ForecastError{Method: method, Reason: fmt.Sprintf("need at least %d observations, got %d", minLen, len(history))}
	}
	for i, v := range history {
		if !finite(v) {
			return &ForecastError{Method: method, Reason: fmt.Sprintf("non-finite observation at index %d", i)}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
