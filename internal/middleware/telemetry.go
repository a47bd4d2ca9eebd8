package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/foresight-go/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// untracedPaths are served without a request span from Tracing. Probes get a
// lighter span from ProbeSpan.
var untracedPaths = map[string]struct{}{
	"/health":  {},
	"/live":    {},
	"/metrics": {},
}

// Tracing opens a server span per request with otelgin, skipping probe and
// scrape endpoints.
func Tracing(service string, tp trace.TracerProvider) gin.HandlerFunc {
	opts := []otelgin.Option{
		otelgin.WithFilter(func(r *http.Request) bool {
			_, skip := untracedPaths[r.URL.Path]
			return !skip
		}),
	}
	if tp != nil {
		opts = append(opts, otelgin.WithTracerProvider(tp))
	}
	return otelgin.Middleware(service, opts...)
}

// RecordError marks the request span as failed.
func RecordError(c *gin.Context, err error, description string) {
	span := trace.SpanFromContext(c.Request.Context())
	if span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, description)
	}
}

// SetSpanAttributes annotates the request span.
func SetSpanAttributes(c *gin.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(c.Request.Context())
	if span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

// SessionSpan tags the request span with the session in the path.
func SessionSpan() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.Param("id"); id != "" {
			SetSpanAttributes(c, attribute.String("session.id", id))
		}
		c.Next()
	}
}

// ProbeSpan records one span per health probe. A 5xx answer means a
// dependency is down and marks the span as an error.
func ProbeSpan() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.GetHTTPTracer().Start(c.Request.Context(), "probe "+c.Request.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.String("probe.path", c.Request.URL.Path),
			attribute.Int("http.status_code", status),
			attribute.Int64("probe.duration_ms", time.Since(start).Milliseconds()),
			attribute.String("probe.result", probeResult(status)),
		)
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, "probe failed with HTTP "+strconv.Itoa(status))
		}
	}
}

func probeResult(status int) string {
	if status < http.StatusBadRequest {
		return "pass"
	}
	return "fail"
}
