package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithoutContext(t *testing.T) {
	for _, tc := range []struct {
		name          string
		log           func(l *ZapLogger, msg string)
		expectedLevel zapcore.Level
	}{
		{name: "info", log: func(l *ZapLogger, msg string) { l.Info(msg) }, expectedLevel: zapcore.InfoLevel},
		{name: "debug", log: func(l *ZapLogger, msg string) { l.Debug(msg) }, expectedLevel: zapcore.DebugLevel},
		{name: "warn", log: func(l *ZapLogger, msg string) { l.Warn(msg) }, expectedLevel: zapcore.WarnLevel},
		{name: "error", log: func(l *ZapLogger, msg string) { l.Error(msg) }, expectedLevel: zapcore.ErrorLevel},
	} {
		t.Run(tc.name, func(t *testing.T) {
			observerLogger, logs := observer.New(zap.DebugLevel)
			dut := &ZapLogger{zap.New(observerLogger)}

			tc.log(dut, "chunk received")
			require.Equal(t, 1, logs.Len())

			entry := logs.All()[0]
			require.Equal(t, "chunk received", entry.Message)
			require.Empty(t, entry.ContextMap())
			require.Equal(t, tc.expectedLevel, entry.Level)
		})
	}
}

func TestWithContext(t *testing.T) {
	t.Run("no_span_adds_no_fields", func(t *testing.T) {
		observerLogger, logs := observer.New(zap.DebugLevel)
		dut := &ZapLogger{zap.New(observerLogger)}

		dut.WarnWithContext(context.Background(), "threshold exceeded")

		require.Equal(t, 1, logs.Len())
		require.Empty(t, logs.All()[0].ContextMap())
		require.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	})

	t.Run("span_context_adds_trace_id", func(t *testing.T) {
		observerLogger, logs := observer.New(zap.DebugLevel)
		dut := &ZapLogger{zap.New(observerLogger)}

		traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		require.NoError(t, err)
		spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
		require.NoError(t, err)
		ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: traceID,
			SpanID:  spanID,
		}))

		dut.InfoWithContext(ctx, "run complete", zap.String("run_id", "abc"))

		require.Equal(t, map[string]interface{}{
			"run_id":   "abc",
			"trace_id": "4bf92f3577b34da6a3ce929d0e0e4736",
		}, logs.All()[0].ContextMap())
	})
}

func TestWithFields(t *testing.T) {
	observerLogger, logs := observer.New(zap.DebugLevel)
	logger := &ZapLogger{zap.New(observerLogger)}

	child := logger.With(zap.String("destination", "group:eng"))
	child.InfoWithContext(context.Background(), "applied")

	require.Equal(t, map[string]interface{}{"destination": "group:eng"}, logs.All()[0].ContextMap())

	logger.Info("applied")
	require.Empty(t, logs.All()[1].ContextMap())
}

func TestNewLogger(t *testing.T) {
	t.Run("none_returns_noop", func(t *testing.T) {
		l, err := NewLogger("text", "none", "Unix")
		require.NoError(t, err)
		require.NotNil(t, l)
	})

	t.Run("unknown_level", func(t *testing.T) {
		_, err := NewLogger("json", "verbose", "Unix")
		require.EqualError(t, err, "unknown log level: verbose")
	})

	t.Run("json_iso8601", func(t *testing.T) {
		l, err := NewLogger("json", "debug", "ISO8601")
		require.NoError(t, err)
		require.True(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("must_panics_on_bad_level", func(t *testing.T) {
		require.Panics(t, func() {
			MustNewLogger("text", "loud", "Unix")
		})
	})
}

func TestObserverLogger(t *testing.T) {
	l, logs := NewObserverLogger("warn")
	l.Info("ignored")
	l.Error("kept")

	require.Equal(t, 1, logs.Len())
	require.Equal(t, "kept", logs.TakeAll()[0].Message)
	require.Equal(t, 0, logs.Len())
}
