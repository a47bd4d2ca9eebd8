package pipeline

import (
	"errors"
	"time"

	"github.com/irfndi/foresight-go/internal/models"
)

// Status is the outcome of one derived cell.
type Status string

const (
	StatusReady       Status = "ready"
	StatusFailed      Status = "failed"
	StatusUnavailable Status = "unavailable"
)

// CellName identifies a derived cell.
type CellName string

const (
	CellFetched  CellName = "fetched"
	CellForecast CellName = "forecast"
	CellFuture   CellName = "future_timestamps"
	CellMerged   CellName = "merged"
)

// Cell holds a derived value together with the key of the inputs it was
// computed from. Value is only meaningful when Status is StatusReady.
type Cell[T any] struct {
	Key    uint64 `json:"key,string"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
	Value  T      `json:"value"`

	err error
}

// Ready reports whether the cell holds a usable value.
func (c Cell[T]) Ready() bool {
	return c.Status == StatusReady
}

// Err returns the failure cause, or nil for ready cells. Cells restored from a
// snapshot only carry the message.
func (c Cell[T]) Err() error {
	if c.Status == StatusReady {
		return nil
	}
	if c.err != nil {
		return c.err
	}
	return errors.New(c.Error)
}

func readyCell[T any](key uint64, v T) Cell[T] {
	return Cell[T]{Key: key, Status: StatusReady, Value: v}
}

func failedCell[T any](key uint64, err error) Cell[T] {
	return Cell[T]{Key: key, Status: StatusFailed, Error: err.Error(), err: err}
}

func unavailableCell[T any](key uint64, reason string) Cell[T] {
	return Cell[T]{Key: key, Status: StatusUnavailable, Error: reason, err: errors.New(reason)}
}

// State is one fully computed, immutable snapshot of a session's pipeline.
type State struct {
	Version    uint64    `json:"version"`
	Selection  Selection `json:"selection"`
	ComputedAt time.Time `json:"computed_at"`

	Fetched  Cell[models.Series]      `json:"fetched"`
	Forecast Cell[models.Forecast]    `json:"forecast"`
	Future   Cell[[]time.Time]        `json:"future_timestamps"`
	Merged   Cell[[]models.MergedRow] `json:"merged"`

	// Window is nil when no default visible range could be derived.
	Window *models.Window `json:"window,omitempty"`
}

// Statuses summarizes every cell by name.
func (s *State) Statuses() map[CellName]Status {
	return map[CellName]Status{
		CellFetched:  s.Fetched.Status,
		CellForecast: s.Forecast.Status,
		CellFuture:   s.Future.Status,
		CellMerged:   s.Merged.Status,
	}
}
