package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	return recorder, tp
}

func TestTracing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder, tp := newRecorder(t)

	router := gin.New()
	router.Use(Tracing("foresight", tp))
	router.GET("/api/v1/sessions/:id/state", SessionSpan(), func(c *gin.Context) {
		SetSpanAttributes(c, attribute.Int64("session.version", 3))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/metrics", func(c *gin.Context) { c.String(http.StatusOK, "") })
	router.GET("/live", func(c *gin.Context) { c.String(http.StatusOK, "") })
	router.GET("/api/v1/fail", func(c *gin.Context) {
		RecordError(c, errors.New("boom"), "handler failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "boom"})
	})

	for _, path := range []string{"/api/v1/sessions/abc/state", "/metrics", "/live", "/api/v1/fail"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Contains(t, spans[0].Name(), "/api/v1/sessions/:id/state")
	assert.Contains(t, spans[0].Attributes(), attribute.String("session.id", "abc"))
	assert.Contains(t, spans[0].Attributes(), attribute.Int64("session.version", 3))
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestProbeSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder, tp := newRecorder(t)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	healthy := true
	router := gin.New()
	router.GET("/health", ProbeSpan(), func(c *gin.Context) {
		if healthy {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
	})

	for _, h := range []bool{true, false} {
		healthy = h
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	}

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "probe /health", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("probe.result", "pass"))
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)

	assert.Contains(t, spans[1].Attributes(), attribute.String("probe.result", "fail"))
	assert.Contains(t, spans[1].Attributes(), attribute.Int("http.status_code", http.StatusServiceUnavailable))
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
