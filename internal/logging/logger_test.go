package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	cfg := NewDefaultConfig()

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Equal(t, cfg, logger.config)
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
}

func TestNewLoggerInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "format", cfg: &Config{Format: "xml"}},
		{name: "empty_key", cfg: &Config{Format: "json", Fields: map[string]string{"": "x"}}},
		{name: "empty_value", cfg: &Config{Format: "console", Fields: map[string]string{"k": ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLogger(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestLoggerContextFields(t *testing.T) {
	logger := NewTestLogger()

	ctx := WithCallID(context.Background(), "call-1")
	logger.Info(ctx, "call begin", zap.String("url", "a/b"))
	logger.Debug(context.Background(), "no id")

	logger.AssertLogged(t, zapcore.InfoLevel, "call begin")
	logger.AssertField(t, "call begin", "call.id", "call-1")
	logger.AssertField(t, "call begin", "url", "a/b")

	entries := logger.FilterMessage("no id").All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "call.id")
}

func TestLoggerTrace(t *testing.T) {
	logger := NewTestLogger()
	logger.Trace(context.Background(), "notify")
	logger.AssertLogged(t, TraceLevel, "notify")

	logger.Reset()
	assert.Empty(t, logger.All())
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "trace", want: TraceLevel},
		{in: "debug", want: zapcore.DebugLevel},
		{in: "warn", want: zapcore.WarnLevel},
		{in: "loud", want: zapcore.InfoLevel, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LevelFromString(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallIDFromContext(t *testing.T) {
	assert.Equal(t, "", CallIDFromContext(context.Background()))
	ctx := WithCallID(context.Background(), "")
	assert.Equal(t, "", CallIDFromContext(ctx))
	assert.Equal(t, "x", CallIDFromContext(WithCallID(ctx, "x")))
}
