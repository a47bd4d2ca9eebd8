package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/irfndi/foresight-go/internal/datasource"
	"github.com/irfndi/foresight-go/internal/forecast"
	"github.com/irfndi/foresight-go/internal/labels"
	"github.com/irfndi/foresight-go/internal/pipeline"
	"github.com/irfndi/foresight-go/internal/session"
	"github.com/stretchr/testify/assert"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&labels.UnknownLabelError{Registry: "sources", Label: "Copper"}, http.StatusBadRequest, "unknown_label"},
		{&pipeline.ValidationError{Field: "horizon", Reason: "too large"}, http.StatusUnprocessableEntity, "invalid_selection"},
		{pipeline.ErrSuperseded, http.StatusConflict, "superseded"},
		{fmt.Errorf("%w: %w", pipeline.ErrAbandoned, context.Canceled), http.StatusRequestTimeout, "abandoned"},
		{fmt.Errorf("lookup: %w", session.ErrSessionNotFound), http.StatusNotFound, "session_not_found"},
		{session.ErrTooManySessions, http.StatusServiceUnavailable, "too_many_sessions"},
		{&datasource.FetchError{SourceID: "X", Reason: "HTTP 500"}, http.StatusBadGateway, "fetch_failed"},
		{&forecast.ForecastError{Method: "drift", Reason: "too short"}, http.StatusBadGateway, "forecast_failed"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
