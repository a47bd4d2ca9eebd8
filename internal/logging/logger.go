package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New creates the logrus logger shared by services. Production environments
// log JSON; development logs human-readable text.
func New(level string, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(ParseLogrusLevel(level))
	if strings.ToLower(environment) == "development" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// NewDiscard returns a logger that drops everything. Used by tests.
func NewDiscard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// getSlogLevel converts string level to slog.Level
func getSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EventLogger emits structured lifecycle and business events. It is backed
// by slog so events can be exported over OTLP when telemetry is enabled.
type EventLogger struct {
	logger *slog.Logger
}

// NewEventLogger wraps an slog logger; nil falls back to JSON on stdout.
func NewEventLogger(logger *slog.Logger) *EventLogger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return &EventLogger{logger: logger}
}

// WithComponent creates a logger with component context
func (l *EventLogger) WithComponent(componentName string) *slog.Logger {
	return l.logger.With("component", componentName)
}

// WithSession creates a logger with session context
func (l *EventLogger) WithSession(sessionID string) *slog.Logger {
	return l.logger.With("session_id", sessionID)
}

// LogStartup logs application startup information
func (l *EventLogger) LogStartup(serviceName string, version string, port int) {
	l.logger.Info("Application startup",
		"service", serviceName,
		"version", version,
		"port", port,
		"event", "startup",
	)
}

// LogShutdown logs application shutdown information
func (l *EventLogger) LogShutdown(serviceName string, reason string) {
	l.logger.Info("Application shutdown",
		"service", serviceName,
		"reason", reason,
		"event", "shutdown",
	)
}

// LogRecompute logs the outcome of one pipeline recompute.
func (l *EventLogger) LogRecompute(sessionID string, version uint64, details map[string]interface{}) {
	l.logger.Info("Pipeline recompute",
		"session_id", sessionID,
		"version", version,
		"details", details,
		"event", "recompute",
	)
}

// Logger returns the underlying *slog.Logger
func (l *EventLogger) Logger() *slog.Logger {
	return l.logger
}
