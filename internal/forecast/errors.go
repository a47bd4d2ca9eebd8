package forecast

import (
	"errors"
	"fmt"
)

// ErrForecastFailed matches every error returned by a Forecaster.
var ErrForecastFailed = errors.New("forecast failed")

// ForecastError describes why a strategy could not produce a forecast.
type ForecastError struct {
	Method string
	Reason string
	Err    error
}

func (e *ForecastError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("forecast %s: %s: %v", e.Method, e.Reason, e.Err)
	}
	return fmt.Sprintf("forecast %s: %s", e.Method, e.Reason)
}

func (e *ForecastError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrForecastFailed}
	}
	return []error{ErrForecastFailed, e.Err}
}
