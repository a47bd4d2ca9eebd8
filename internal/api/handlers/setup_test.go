package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/foresight-go/internal/catalog"
	"github.com/irfndi/foresight-go/internal/config"
	"github.com/irfndi/foresight-go/internal/datasource"
	"github.com/irfndi/foresight-go/internal/forecast"
	"github.com/irfndi/foresight-go/internal/logging"
	"github.com/irfndi/foresight-go/internal/middleware"
	"github.com/irfndi/foresight-go/internal/models"
	"github.com/irfndi/foresight-go/internal/pipeline"
	"github.com/irfndi/foresight-go/internal/session"
	"github.com/irfndi/foresight-go/internal/testutil"
	"github.com/stretchr/testify/require"
)

const brokenSource = "FRED/BROKEN"

var testForecastConfig = config.ForecastConfig{
	Method:         "drift",
	Level:          95,
	MaxHorizon:     24,
	DefaultHorizon: 6,
	LookbackMonths: 6,
}

type testEnv struct {
	router  *gin.Engine
	manager *session.Manager
	auth    *middleware.AuthMiddleware
	catalog *catalog.Catalog
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Build(
		[]catalog.SourceDef{
			{Label: "WTI oil", ID: "FRED/DCOILWTICO"},
			{Label: "Broken feed", ID: brokenSource},
			{Label: "Gold", ID: "LBMA/GOLD", Periods: []string{"monthly"}},
		},
		[]catalog.PeriodDef{
			{Label: "Weeks", ID: "weekly", Unit: "weeks"},
			{Label: "Months", ID: "monthly", Unit: "months"},
		},
	)
	require.NoError(t, err)
	return cat
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat := newTestCatalog(t)
	registry, err := forecast.NewRegistry(forecast.Options{Level: 95})
	require.NoError(t, err)
	drift, err := registry.Get("drift")
	require.NoError(t, err)

	fetcher := datasource.FetcherFunc(func(_ context.Context, req datasource.FetchRequest) (models.Series, error) {
		if req.SourceID == brokenSource {
			return models.Series{}, &datasource.FetchError{SourceID: req.SourceID, Reason: "HTTP 503", Err: errors.New("upstream down")}
		}
		return testutil.MonthlySeries(req.SourceID, req.Start, req.End), nil
	})
	engine := pipeline.NewEngine(fetcher, drift, cat.Adapter, pipeline.WithLogger(logging.NewDiscard()))
	manager := session.NewManager(engine, config.SessionConfig{TTL: "30m"}, session.WithLogger(logging.NewDiscard()))
	auth := middleware.NewAuthMiddleware("test-secret")

	h := NewSessionHandler(manager, cat, auth, testForecastConfig, logging.NewDiscard())
	router := gin.New()
	router.GET("/api/v1/catalog", NewCatalogHandler(cat, testForecastConfig).GetCatalog)
	router.POST("/api/v1/sessions", h.CreateSession)
	sessions := router.Group("/api/v1/sessions/:id", auth.RequireSession())
	sessions.PUT("/selection", h.UpdateSelection)
	sessions.GET("/state", h.GetState)
	sessions.GET("/charts/history", h.GetHistoryChart)
	sessions.GET("/charts/forecast", h.GetForecastChart)
	sessions.DELETE("", h.DeleteSession)

	return &testEnv{router: router, manager: manager, auth: auth, catalog: cat}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// createSession returns a new session id and its token.
func (e *testEnv) createSession(t *testing.T) (string, string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp CreateSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	require.WithinDuration(t, time.Now().Add(30*time.Minute), resp.ExpiresAt, time.Minute)
	return resp.SessionID, resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
