package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"warning": zapcore.WarnLevel,
		" INFO":   zapcore.InfoLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	for _, s := range []string{"unknown", "panic", "fatal", ""} {
		_, ok := ParseLogLevel(s)
		require.False(t, ok, s)
	}
}

// TestContextLogger checks that names and fields travel with the context and reach the sink.
func TestContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := NewWithSink(zapcore.AddSync(&buf), zapcore.DebugLevel)

	ctx := ToContext(context.Background(), l)
	ctx = WithName(ctx, "vendor")
	ctx = WithKV(ctx, "package", "vercel")

	InfoKV(ctx, "Resolved version", "version", "46.0.2")

	out := buf.String()
	require.Contains(t, out, "vendor")
	require.Contains(t, out, "Resolved version")
	require.Contains(t, out, "package")
	require.Contains(t, out, "46.0.2")
}

// TestFromContext_FallsBackToGlobal ensures a bare context still yields a usable logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Equal(t, Logger(), FromContext(context.Background()))
}

// TestWithLevel asserts that the option suppresses messages below the requested level.
func TestWithLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := NewWithSink(zapcore.AddSync(&buf), zapcore.DebugLevel).WithOptions(WithLevel(zapcore.ErrorLevel))
	ctx := ToContext(context.Background(), l)

	Info(ctx, "hidden message")
	Error(ctx, "visible message")

	require.NotContains(t, buf.String(), "hidden message")
	require.Contains(t, buf.String(), "visible message")
}
