package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerRedactsSensitiveKeys(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewFromCore(core)

	log.Info("calling meal plan service",
		"api_key", "mp-123",
		"Authorization", "Bearer abc",
		"user_id", "u-1",
		"jwt", "eyJhbGciOiJIUzI1NiJ9.eyJ1c2VyX2lkIjoiMSJ9.sig",
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "[REDACTED]", fields["Authorization"])
	assert.Equal(t, "[REDACTED]", fields["jwt"])
	assert.Equal(t, "u-1", fields["user_id"])
}

func TestLoggerWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewFromCore(core).With("submission_id", "s-1")

	log.Warn("aggregation failed", "step", "aggregating")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "s-1", fields["submission_id"])
	assert.Equal(t, "aggregating", fields["step"])
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"production", "development", ""} {
		l, err := New(mode)
		require.NoError(t, err, mode)
		require.NotNil(t, l)
	}
}
