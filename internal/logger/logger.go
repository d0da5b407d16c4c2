package logger

import (
	"context"
	"os"
	"strings"

	"lights-api/internal/domain"

	"github.com/sirupsen/logrus"
)

// StructuredLogger implements domain.Logger on top of logrus.
type StructuredLogger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	ClientIPKey  contextKey = "client_ip"
	PathKey      contextKey = "path"
)

// NewLogger builds a structured logger with the given level and format
// ("json" or "text").
func NewLogger(level, format string) domain.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	logger.SetOutput(os.Stdout)

	return &StructuredLogger{
		logger: logger,
		fields: make(logrus.Fields),
	}
}

// Debug logs a debug message.
func (l *StructuredLogger) Debug(msg string, fields map[string]interface{}) {
	l.logWithFields(logrus.DebugLevel, msg, fields)
}

// Info logs an informational message.
func (l *StructuredLogger) Info(msg string, fields map[string]interface{}) {
	l.logWithFields(logrus.InfoLevel, msg, fields)
}

// Warn logs a warning message.
func (l *StructuredLogger) Warn(msg string, fields map[string]interface{}) {
	l.logWithFields(logrus.WarnLevel, msg, fields)
}

// Error logs an error message, attaching err when present.
func (l *StructuredLogger) Error(msg string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.logWithFields(logrus.ErrorLevel, msg, fields)
}

// WithContext returns a logger that carries request-scoped fields
// (request ID, client IP, path) extracted from ctx.
func (l *StructuredLogger) WithContext(ctx context.Context) domain.Logger {
	merged := make(logrus.Fields)
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range l.extractContextFields(ctx) {
		merged[k] = v
	}

	return &StructuredLogger{
		logger: l.logger,
		fields: merged,
	}
}

func (l *StructuredLogger) logWithFields(level logrus.Level, msg string, fields map[string]interface{}) {
	allFields := make(logrus.Fields)
	for k, v := range l.fields {
		allFields[k] = v
	}
	for k, v := range fields {
		allFields[k] = v
	}
	allFields["component"] = "lights_api"

	l.logger.WithFields(allFields).Log(level, msg)
}

func (l *StructuredLogger) extractContextFields(ctx context.Context) logrus.Fields {
	fields := make(logrus.Fields)
	if ctx == nil {
		return fields
	}

	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		fields["request_id"] = requestID
	}
	if ip := ctx.Value(ClientIPKey); ip != nil {
		fields["client_ip"] = ip
	}
	if path := ctx.Value(PathKey); path != nil {
		fields["path"] = path
	}

	return fields
}

// ContextWithRequestInfo attaches request identifiers to ctx for logging.
func ContextWithRequestInfo(ctx context.Context, requestID, clientIP, path string) context.Context {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	ctx = context.WithValue(ctx, ClientIPKey, clientIP)
	ctx = context.WithValue(ctx, PathKey, path)
	return ctx
}
