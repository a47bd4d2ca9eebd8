// Package pipeline derives the fetched series, forecast, future timestamps
// and merged table from a selection, in dependency order.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/foresight-go/internal/datasource"
	"github.com/irfndi/foresight-go/internal/forecast"
	"github.com/irfndi/foresight-go/internal/metrics"
	"github.com/irfndi/foresight-go/internal/models"
	"github.com/irfndi/foresight-go/internal/period"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/irfndi/foresight-go/internal/pipeline"

// Engine evaluates the cell chain. It holds no per-session state and is safe
// for concurrent use.
type Engine struct {
	fetcher    datasource.Fetcher
	forecaster forecast.Forecaster
	adapter    *period.Adapter
	lookback   int
	tracer     trace.Tracer
	metrics    *metrics.Collector
	logger     *logrus.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLookbackMonths sets the default window lookback.
func WithLookbackMonths(months int) Option {
	return func(e *Engine) { e.lookback = months }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(tracerName) }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over the given collaborators.
func NewEngine(fetcher datasource.Fetcher, forecaster forecast.Forecaster, adapter *period.Adapter, opts ...Option) *Engine {
	e := &Engine{
		fetcher:    fetcher,
		forecaster: forecaster,
		adapter:    adapter,
		lookback:   DefaultLookbackMonths,
		tracer:     otel.Tracer(tracerName),
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute evaluates every cell for sel from scratch.
func (e *Engine) Compute(ctx context.Context, sel Selection) *State {
	return e.Recompute(ctx, sel, nil)
}

// Recompute evaluates every cell for sel, reusing ready cells from prev whose
// input key is unchanged. A failed cell marks its dependents unavailable
// without invoking their collaborators.
func (e *Engine) Recompute(ctx context.Context, sel Selection, prev *State) *State {
	ctx, span := e.tracer.Start(ctx, "pipeline.recompute", trace.WithAttributes(
		attribute.String("selection.source_id", sel.SourceID),
		attribute.String("selection.period_id", sel.PeriodID),
		attribute.Int("selection.horizon", sel.Horizon),
	))
	defer span.End()

	if prev == nil {
		prev = &State{}
	}
	state := &State{Selection: sel}

	fk := fetchKey(sel)
	state.Fetched = evaluate(ctx, e, CellFetched, fk, prev.Fetched, func(ctx context.Context) (models.Series, error) {
		start := time.Now()
		series, err := e.fetcher.FetchSeries(ctx, datasource.FetchRequest{
			SourceID: sel.SourceID,
			PeriodID: sel.PeriodID,
			Start:    sel.Start,
			End:      sel.End,
		})
		e.metrics.ObserveFetch(time.Since(start), err)
		if err != nil {
			return series, err
		}
		return boundToRange(series, sel)
	})

	method := e.forecaster.Name()
	fck := forecastKey(fk, method, sel.Horizon)
	if state.Fetched.Ready() {
		history := state.Fetched.Value.Values()
		state.Forecast = evaluate(ctx, e, CellForecast, fck, prev.Forecast, func(ctx context.Context) (models.Forecast, error) {
			start := time.Now()
			fc, err := e.forecaster.Forecast(ctx, history, sel.Horizon)
			e.metrics.ObserveForecast(method, time.Since(start), err)
			return fc, err
		})
	} else {
		state.Forecast = skip[models.Forecast](e, CellForecast, fck, "fetched data unavailable")
	}

	tk := futureKey(sel)
	state.Future = evaluate(ctx, e, CellFuture, tk, prev.Future, func(context.Context) ([]time.Time, error) {
		unit, err := e.adapter.UnitFor(sel.PeriodID)
		if err != nil {
			return nil, err
		}
		return FutureTimestamps(sel.End, unit, sel.Horizon)
	})

	mk := mergedKey(fk, fck, tk)
	switch {
	case !state.Fetched.Ready():
		state.Merged = skip[[]models.MergedRow](e, CellMerged, mk, "fetched data unavailable")
	case !state.Forecast.Ready():
		state.Merged = skip[[]models.MergedRow](e, CellMerged, mk, "forecast unavailable")
	case !state.Future.Ready():
		state.Merged = skip[[]models.MergedRow](e, CellMerged, mk, "future timestamps unavailable")
	default:
		state.Merged = evaluate(ctx, e, CellMerged, mk, prev.Merged, func(context.Context) ([]models.MergedRow, error) {
			return Merge(state.Fetched.Value, state.Future.Value, state.Forecast.Value)
		})
	}

	if state.Future.Ready() {
		if w, ok := Window(sel.End, state.Future.Value, e.lookback); ok {
			state.Window = &w
		}
	}

	state.ComputedAt = time.Now().UTC()
	span.SetAttributes(
		attribute.String("cell.fetched", string(state.Fetched.Status)),
		attribute.String("cell.forecast", string(state.Forecast.Status)),
		attribute.String("cell.merged", string(state.Merged.Status)),
	)
	return state
}

// boundToRange drops observations dated outside the selection range so that
// history never reaches the first future timestamp.
func boundToRange(series models.Series, sel Selection) (models.Series, error) {
	clipped, _ := series.Clip(sel.Start, sel.End)
	if clipped.Len() == 0 {
		return models.Series{}, &datasource.FetchError{SourceID: sel.SourceID, Reason: "no data for selection"}
	}
	return clipped, nil
}

// evaluate returns prev when it is ready and keyed identically, otherwise
// runs fn. Panics in fn are converted into a failed cell.
func evaluate[T any](ctx context.Context, e *Engine, name CellName, key uint64, prev Cell[T], fn func(context.Context) (T, error)) (cell Cell[T]) {
	if prev.Ready() && prev.Key == key {
		e.metrics.ObserveCellReuse(string(name))
		return prev
	}

	ctx, span := e.tracer.Start(ctx, "pipeline."+string(name), trace.WithAttributes(
		attribute.String("cell.key", fmt.Sprintf("%016x", key)),
	))
	defer func() {
		if r := recover(); r != nil {
			cell = failedCell[T](key, fmt.Errorf("%s panicked: %v", name, r))
		}
		if !cell.Ready() {
			span.RecordError(cell.Err())
			span.SetStatus(codes.Error, cell.Error)
			e.logger.WithFields(logrus.Fields{
				"cell":  name,
				"error": cell.Error,
			}).Warn("Pipeline cell failed")
		}
		e.metrics.ObserveCell(string(name), string(cell.Status))
		span.End()
	}()

	v, err := fn(ctx)
	if err != nil {
		return failedCell[T](key, err)
	}
	return readyCell(key, v)
}

func skip[T any](e *Engine, name CellName, key uint64, reason string) Cell[T] {
	e.metrics.ObserveCell(string(name), string(StatusUnavailable))
	return unavailableCell[T](key, reason)
}
