package logger

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ValidLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		log := NewLogger(level, "json")
		assert.NotNil(t, log)
	}
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	log := NewLogger("not-a-level", "json")
	require.NotNil(t, log)

	structured, ok := log.(*StructuredLogger)
	require.True(t, ok)
	assert.Equal(t, logrus.InfoLevel, structured.logger.GetLevel())
}

func TestNewLogger_TextFormat(t *testing.T) {
	log := NewLogger("info", "text")
	require.NotNil(t, log)

	structured, ok := log.(*StructuredLogger)
	require.True(t, ok)
	_, isText := structured.logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}

func TestWithContext_CarriesRequestFields(t *testing.T) {
	log := NewLogger("debug", "json")

	ctx := ContextWithRequestInfo(context.Background(), "req-123", "203.0.113.7", "/lights")
	scoped := log.WithContext(ctx)

	structured, ok := scoped.(*StructuredLogger)
	require.True(t, ok)
	assert.Equal(t, "req-123", structured.fields["request_id"])
	assert.Equal(t, "203.0.113.7", structured.fields["client_ip"])
	assert.Equal(t, "/lights", structured.fields["path"])
}

func TestWithContext_NilContext(t *testing.T) {
	log := NewLogger("info", "json")

	scoped := log.WithContext(nil)
	require.NotNil(t, scoped)

	// Logging through the scoped logger must not panic.
	scoped.Info("message", nil)
	scoped.Error("failure", assert.AnError, map[string]interface{}{"k": "v"})
}
