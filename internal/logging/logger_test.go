package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	conceptragtrace "github.com/conceptrag/conceptrag/internal/trace"
)

func TestNewRejectsInvalidFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := New(cfg)
	require.Error(t, err)
}

func TestWithProducesIndependentChild(t *testing.T) {
	l := NewNop()
	child := l.With()
	require.NotNil(t, child)
	require.NotSame(t, l, child)
}

func TestEnabledRespectsConfiguredLevel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = zapcore.WarnLevel
	l, err := New(cfg)
	require.NoError(t, err)
	require.False(t, l.Enabled(zapcore.DebugLevel))
	require.True(t, l.Enabled(zapcore.WarnLevel))
}

func TestContextFieldsCarriesTraceID(t *testing.T) {
	ctx := conceptragtrace.With(context.Background(), "trace-123")
	fields := ContextFields(ctx)
	require.NotEmpty(t, fields)
}
