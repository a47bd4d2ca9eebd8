package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/foresight-go/internal/api/handlers"
	"github.com/irfndi/foresight-go/internal/catalog"
	"github.com/irfndi/foresight-go/internal/config"
	"github.com/irfndi/foresight-go/internal/datasource"
	"github.com/irfndi/foresight-go/internal/forecast"
	"github.com/irfndi/foresight-go/internal/logging"
	"github.com/irfndi/foresight-go/internal/metrics"
	"github.com/irfndi/foresight-go/internal/models"
	"github.com/irfndi/foresight-go/internal/pipeline"
	"github.com/irfndi/foresight-go/internal/session"
	"github.com/irfndi/foresight-go/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, adminKey string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server:   config.ServerConfig{AdminAPIKey: adminKey},
		Forecast: config.ForecastConfig{Method: "naive", Level: 80, MaxHorizon: 100, DefaultHorizon: 6, LookbackMonths: 6},
		Session:  config.SessionConfig{Secret: "secret", TTL: "30m"},
	}
	sources, periods := catalog.FromConfig(config.CatalogConfig{
		Sources: []config.SourceConfig{{Label: "WTI oil", ID: "FRED/DCOILWTICO"}},
		Periods: []config.PeriodConfig{{Label: "Months", ID: "monthly", Unit: "months"}},
	})
	cat, err := catalog.Build(sources, periods)
	require.NoError(t, err)

	registry, err := forecast.NewRegistry(forecast.OptionsFromConfig(cfg.Forecast))
	require.NoError(t, err)
	naive, err := registry.Get(cfg.Forecast.Method)
	require.NoError(t, err)

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	fetcher := datasource.FetcherFunc(func(_ context.Context, req datasource.FetchRequest) (models.Series, error) {
		return testutil.MonthlySeries(req.SourceID, req.Start, req.End), nil
	})
	engine := pipeline.NewEngine(fetcher, naive, cat.Adapter,
		pipeline.WithMetrics(collector), pipeline.WithLogger(logging.NewDiscard()))
	manager := session.NewManager(engine, cfg.Session,
		session.WithMetrics(collector), session.WithLogger(logging.NewDiscard()))

	router := gin.New()
	router.Use(collector.GinMiddleware())
	SetupRoutes(router, Dependencies{
		Config:  cfg,
		Catalog: cat,
		Manager: manager,
		Janitor: session.NewJanitor(manager, time.Minute, logging.NewDiscard()),
		Metrics: collector,
		Health:  handlers.NewHealthHandler("test"),
		Logger:  logging.NewDiscard(),
	})
	return router
}

func serve(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetupRoutes_EndToEnd(t *testing.T) {
	router := setupRouter(t, "")

	w := serve(router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodGet, "/api/v1/catalog", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"WTI oil"`)

	w = serve(router, http.MethodPost, "/api/v1/sessions", "", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var created handlers.CreateSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	base := "/api/v1/sessions/" + created.SessionID
	body := `{"source":"WTI oil","period":"Months","start":"1980-01-01","end":"2016-12-31","horizon":6}`
	w = serve(router, http.MethodPut, base+"/selection", created.Token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(router, http.MethodGet, base+"/charts/forecast", created.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"label":"2017-01-31"`)

	w = serve(router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "foresight_cell_computations_total")
	assert.Contains(t, w.Body.String(), "foresight_active_sessions 1")

	w = serve(router, http.MethodDelete, base, created.Token, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSetupRoutes_AdminDisabledWithoutKey(t *testing.T) {
	router := setupRouter(t, "")
	w := serve(router, http.MethodGet, "/api/v1/admin/sessions", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRoutes_AdminRequiresKey(t *testing.T) {
	router := setupRouter(t, "admin-key")

	w := serve(router, http.MethodGet, "/api/v1/admin/sessions", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(router, http.MethodGet, "/api/v1/admin/sessions", "admin-key", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active":0`)
}
