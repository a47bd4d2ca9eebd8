package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/foresight-go/internal/catalog"
	"github.com/irfndi/foresight-go/internal/config"
	"github.com/irfndi/foresight-go/internal/middleware"
	"github.com/irfndi/foresight-go/internal/models"
	"github.com/irfndi/foresight-go/internal/pipeline"
	"github.com/irfndi/foresight-go/internal/presentation"
	"github.com/irfndi/foresight-go/internal/session"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// SessionHandler serves session lifecycle, selection updates and charts.
type SessionHandler struct {
	manager  *session.Manager
	catalog  *catalog.Catalog
	auth     *middleware.AuthMiddleware
	forecast config.ForecastConfig
	logger   *logrus.Logger
}

// SelectionRequest uses display labels; identifiers never cross the API.
type SelectionRequest struct {
	Source  string `json:"source" binding:"required"`
	Period  string `json:"period" binding:"required"`
	Start   string `json:"start" binding:"required"`
	End     string `json:"end" binding:"required"`
	Horizon int    `json:"horizon"`
}

type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SelectionView struct {
	Source  string `json:"source"`
	Period  string `json:"period"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Horizon int    `json:"horizon"`
}

type CellView struct {
	Status pipeline.Status `json:"status"`
	Error  string          `json:"error,omitempty"`
}

// StateResponse summarizes one published state.
type StateResponse struct {
	SessionID  string                         `json:"session_id"`
	Version    uint64                         `json:"version"`
	ComputedAt time.Time                      `json:"computed_at"`
	Selection  SelectionView                  `json:"selection"`
	Cells      map[pipeline.CellName]CellView `json:"cells"`
	Message    string                         `json:"message,omitempty"`
	Rows       []models.MergedRow             `json:"rows,omitempty"`
	Window     *models.Window                 `json:"window,omitempty"`
}

func NewSessionHandler(manager *session.Manager, cat *catalog.Catalog, auth *middleware.AuthMiddleware,
	forecast config.ForecastConfig, logger *logrus.Logger) *SessionHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SessionHandler{
		manager:  manager,
		catalog:  cat,
		auth:     auth,
		forecast: forecast,
		logger:   logger,
	}
}

// CreateSession starts an empty session and returns a token scoped to it.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	s, err := h.manager.Create()
	if err != nil {
		respondError(c, err)
		return
	}

	ttl := h.manager.TTL()
	token, err := h.auth.GenerateToken(s.ID(), ttl)
	if err != nil {
		_ = h.manager.Delete(c.Request.Context(), s.ID())
		h.logger.WithError(err).Error("Failed to sign session token")
		respondError(c, err)
		return
	}

	middleware.SetSpanAttributes(c, attribute.String("session.id", s.ID()))
	c.JSON(http.StatusCreated, CreateSessionResponse{
		SessionID: s.ID(),
		Token:     token,
		ExpiresAt: time.Now().Add(ttl).UTC(),
	})
}

// UpdateSelection replaces the session's selection and recomputes.
func (h *SessionHandler) UpdateSelection(c *gin.Context) {
	id := c.Param("id")

	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format", Code: "bad_request", Detail: err.Error()})
		return
	}

	sel, err := h.resolve(req)
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.catalog.Supports(sel.SourceID, sel.PeriodID) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: fmt.Sprintf("%s is not available in %s", req.Source, req.Period),
			Code:  "unsupported_period",
		})
		return
	}
	if err := sel.Validate(pipeline.Limits{MaxHorizon: h.forecast.MaxHorizon}); err != nil {
		respondError(c, err)
		return
	}

	state, err := h.manager.Update(c.Request.Context(), id, sel)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetSpanAttributes(c, attribute.Int64("session.version", int64(state.Version)))
	h.logger.WithFields(logrus.Fields{
		"session_id": id,
		"version":    state.Version,
		"source_id":  sel.SourceID,
		"period_id":  sel.PeriodID,
		"horizon":    sel.Horizon,
	}).Debug("Selection updated")

	c.JSON(http.StatusOK, h.stateResponse(id, state, false))
}

// GetState returns the last published state with its merged table.
func (h *SessionHandler) GetState(c *gin.Context) {
	id := c.Param("id")
	state, err := h.manager.State(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.stateResponse(id, state, true))
}

// GetHistoryChart renders the fetched series. A failed fetch is a 502.
func (h *SessionHandler) GetHistoryChart(c *gin.Context) {
	state, err := h.manager.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !state.Fetched.Ready() {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:  msgDataUnavailable,
			Code:   "fetch_failed",
			Detail: state.Fetched.Error,
		})
		return
	}

	source, periodLabel := h.labels(state.Selection)
	c.JSON(http.StatusOK, presentation.HistoryChart(source, periodLabel, state.Fetched.Value))
}

// GetForecastChart renders history plus forecast, or a placeholder when the
// forecast could not be produced.
func (h *SessionHandler) GetForecastChart(c *gin.Context) {
	state, err := h.manager.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	source, periodLabel := h.labels(state.Selection)
	if !state.Merged.Ready() {
		c.JSON(http.StatusOK, presentation.ForecastPlaceholder(source, forecastReason(state)))
		return
	}
	c.JSON(http.StatusOK, presentation.ForecastChart(source, periodLabel, state.Merged.Value, state.Window))
}

// DeleteSession closes the session and drops its snapshot.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.manager.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) resolve(req SelectionRequest) (pipeline.Selection, error) {
	sourceID, err := h.catalog.Sources.ResolveID(req.Source)
	if err != nil {
		return pipeline.Selection{}, err
	}
	periodID, err := h.catalog.Periods.ResolveID(req.Period)
	if err != nil {
		return pipeline.Selection{}, err
	}

	start, err := time.Parse(models.DateLayout, req.Start)
	if err != nil {
		return pipeline.Selection{}, &pipeline.ValidationError{Field: "start", Reason: "expected YYYY-MM-DD"}
	}
	end, err := time.Parse(models.DateLayout, req.End)
	if err != nil {
		return pipeline.Selection{}, &pipeline.ValidationError{Field: "end", Reason: "expected YYYY-MM-DD"}
	}

	horizon := req.Horizon
	if horizon == 0 {
		horizon = h.forecast.DefaultHorizon
	}

	return pipeline.Selection{
		SourceID: sourceID,
		PeriodID: periodID,
		Start:    start,
		End:      end,
		Horizon:  horizon,
	}, nil
}

// labels maps the selection back to display labels. Snapshots written under
// an older catalog fall back to the identifiers.
func (h *SessionHandler) labels(sel pipeline.Selection) (string, string) {
	source, err := h.catalog.Sources.ResolveLabel(sel.SourceID)
	if err != nil {
		source = sel.SourceID
	}
	periodLabel, err := h.catalog.Periods.ResolveLabel(sel.PeriodID)
	if err != nil {
		periodLabel = sel.PeriodID
	}
	return source, periodLabel
}

func (h *SessionHandler) stateResponse(id string, state *pipeline.State, withRows bool) StateResponse {
	source, periodLabel := h.labels(state.Selection)

	cells := make(map[pipeline.CellName]CellView, 4)
	for name, status := range state.Statuses() {
		cells[name] = CellView{Status: status}
	}
	setError := func(name pipeline.CellName, msg string) {
		if v := cells[name]; v.Status != pipeline.StatusReady {
			v.Error = msg
			cells[name] = v
		}
	}
	setError(pipeline.CellFetched, state.Fetched.Error)
	setError(pipeline.CellForecast, state.Forecast.Error)
	setError(pipeline.CellFuture, state.Future.Error)
	setError(pipeline.CellMerged, state.Merged.Error)

	resp := StateResponse{
		SessionID:  id,
		Version:    state.Version,
		ComputedAt: state.ComputedAt,
		Selection: SelectionView{
			Source:  source,
			Period:  periodLabel,
			Start:   state.Selection.Start.Format(models.DateLayout),
			End:     state.Selection.End.Format(models.DateLayout),
			Horizon: state.Selection.Horizon,
		},
		Cells:  cells,
		Window: state.Window,
	}
	switch {
	case !state.Fetched.Ready():
		resp.Message = msgDataUnavailable
	case !state.Merged.Ready():
		resp.Message = msgForecastUnavailable
	}
	if withRows && state.Merged.Ready() {
		resp.Rows = state.Merged.Value
	}
	return resp
}

func forecastReason(state *pipeline.State) string {
	switch {
	case !state.Fetched.Ready():
		return msgDataUnavailable
	case state.Forecast.Status == pipeline.StatusFailed:
		return state.Forecast.Error
	case state.Future.Status == pipeline.StatusFailed:
		return state.Future.Error
	default:
		return state.Merged.Error
	}
}
