package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/foresight-go/internal/datasource"
	"github.com/irfndi/foresight-go/internal/forecast"
	"github.com/irfndi/foresight-go/internal/labels"
	"github.com/irfndi/foresight-go/internal/middleware"
	"github.com/irfndi/foresight-go/internal/pipeline"
	"github.com/irfndi/foresight-go/internal/session"
)

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// Messages shown to users when a derived cell is not ready.
const (
	msgDataUnavailable     = "data unavailable for this selection"
	msgForecastUnavailable = "forecast unavailable for this selection"
)

// errorStatus maps domain errors onto an HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, labels.ErrUnknownLabel):
		return http.StatusBadRequest, "unknown_label"
	case errors.Is(err, labels.ErrUnknownIdentifier):
		return http.StatusBadRequest, "unknown_identifier"
	case errors.Is(err, pipeline.ErrInvalidSelection):
		return http.StatusUnprocessableEntity, "invalid_selection"
	case errors.Is(err, pipeline.ErrSuperseded):
		return http.StatusConflict, "superseded"
	case errors.Is(err, pipeline.ErrAbandoned):
		return http.StatusRequestTimeout, "abandoned"
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, session.ErrNoState):
		return http.StatusNotFound, "no_state"
	case errors.Is(err, session.ErrTooManySessions):
		return http.StatusServiceUnavailable, "too_many_sessions"
	case errors.Is(err, datasource.ErrFetchFailed):
		return http.StatusBadGateway, "fetch_failed"
	case errors.Is(err, forecast.ErrForecastFailed):
		return http.StatusBadGateway, "forecast_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// respondError writes err with its mapped status and records it on the span.
func respondError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	if status >= http.StatusInternalServerError {
		middleware.RecordError(c, err, code)
	}
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}
