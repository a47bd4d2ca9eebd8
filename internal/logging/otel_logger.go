package logging

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const logsPath = "/v1/logs"

// OTLPConfig selects where session events are exported.
type OTLPConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Environment    string
	LogLevel       string
}

// OTLPLogger owns the slog logger handed to EventLogger and, when export is
// enabled, the log provider that has to be flushed on shutdown.
type OTLPLogger struct {
	logger   *slog.Logger
	provider *sdklog.LoggerProvider
}

// NewOTLPLogger builds the event logger. Disabled export falls back to JSON
// on stdout.
func NewOTLPLogger(cfg OTLPConfig) (*OTLPLogger, error) {
	level := getSlogLevel(cfg.LogLevel)
	if !cfg.Enabled {
		return &OTLPLogger{
			logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})),
		}, nil
	}

	opts, err := logExporterOptions(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exporter, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create log resource: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)

	return &OTLPLogger{
		logger:   slog.New(NewOTLPHandler(provider.Logger(cfg.ServiceName), level)),
		provider: provider,
	}, nil
}

// logExporterOptions maps a collector base URL onto exporter options. A bare
// host:port is accepted and treated as plain HTTP.
func logExporterOptions(endpoint string) ([]otlploghttp.Option, error) {
	if endpoint == "" {
		endpoint = "http://localhost:4318"
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid OTLP log endpoint %q", endpoint)
	}

	path := strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(path, logsPath) {
		path += logsPath
	}

	opts := []otlploghttp.Option{
		otlploghttp.WithEndpoint(u.Host),
		otlploghttp.WithURLPath(path),
	}
	switch u.Scheme {
	case "http":
		opts = append(opts, otlploghttp.WithInsecure())
	case "https":
	default:
		return nil, fmt.Errorf("invalid OTLP log endpoint %q: unsupported scheme %q", endpoint, u.Scheme)
	}
	return opts, nil
}

// Shutdown flushes pending records.
func (l *OTLPLogger) Shutdown(ctx context.Context) error {
	if l.provider == nil {
		return nil
	}
	return l.provider.Shutdown(ctx)
}

func (l *OTLPLogger) Logger() *slog.Logger {
	return l.logger
}

// OTLPHandler is an slog.Handler that emits records through an
// OpenTelemetry logger. Groups are flattened into dotted keys.
type OTLPHandler struct {
	logger otellog.Logger
	level  slog.Level
	attrs  []otellog.KeyValue
	group  string
}

func NewOTLPHandler(logger otellog.Logger, level slog.Level) *OTLPHandler {
	return &OTLPHandler{logger: logger, level: level}
}

func (h *OTLPHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *OTLPHandler) Handle(ctx context.Context, record slog.Record) error {
	kvs := make([]otellog.KeyValue, 0, len(h.attrs)+record.NumAttrs())
	kvs = append(kvs, h.attrs...)
	record.Attrs(func(a slog.Attr) bool {
		kvs = appendAttr(kvs, h.group, a)
		return true
	})

	var out otellog.Record
	out.SetTimestamp(record.Time)
	out.SetObservedTimestamp(time.Now())
	out.SetSeverity(convertSlogLevelToSeverity(record.Level))
	out.SetSeverityText(record.Level.String())
	out.SetBody(otellog.StringValue(record.Message))
	out.AddAttributes(kvs...)

	h.logger.Emit(ctx, out)
	return nil
}

func (h *OTLPHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]otellog.KeyValue, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = appendAttr(next.attrs, h.group, a)
	}
	return &next
}

func (h *OTLPHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = joinKey(h.group, name)
	return &next
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func appendAttr(kvs []otellog.KeyValue, prefix string, a slog.Attr) []otellog.KeyValue {
	v := a.Value.Resolve()
	if a.Key == "" && v.Kind() != slog.KindGroup {
		return kvs
	}
	key := joinKey(prefix, a.Key)

	switch v.Kind() {
	case slog.KindGroup:
		for _, member := range v.Group() {
			kvs = appendAttr(kvs, key, member)
		}
		return kvs
	case slog.KindBool:
		return append(kvs, otellog.Bool(key, v.Bool()))
	case slog.KindInt64:
		return append(kvs, otellog.Int64(key, v.Int64()))
	case slog.KindUint64:
		return append(kvs, otellog.Int64(key, int64(v.Uint64())))
	case slog.KindFloat64:
		return append(kvs, otellog.Float64(key, v.Float64()))
	case slog.KindDuration:
		return append(kvs, otellog.Int64(key+"_ms", v.Duration().Milliseconds()))
	case slog.KindTime:
		return append(kvs, otellog.String(key, v.Time().UTC().Format(time.RFC3339Nano)))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return append(kvs, otellog.String(key, err.Error()))
		}
	}
	return append(kvs, otellog.String(key, v.String()))
}

func convertSlogLevelToSeverity(level slog.Level) otellog.Severity {
	switch {
	case level >= slog.LevelError:
		return otellog.SeverityError
	case level >= slog.LevelWarn:
		return otellog.SeverityWarn
	case level >= slog.LevelInfo:
		return otellog.SeverityInfo
	default:
		return otellog.SeverityDebug
	}
}
