package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* ───────── Logger Package Unit Tests ───────── */

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: " warn ", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "invalid", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	logger := NewLogger()
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewTextLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer
	logger := NewTextLogger(&buf)

	logger.Debug("hidden")
	logger.Info("visible", slog.String("source", "diario"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=visible")
	assert.Contains(t, out, "source=diario")
}

func TestLogger_JSONStructure(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelInfo, false)

	logger.Warn("article skipped",
		slog.String("source", "diario"),
		slog.String("url", "https://example.com/a"),
		slog.Int64("article_id", 42))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "article skipped", entry["msg"])
	assert.Equal(t, "diario", entry["source"])
	assert.Equal(t, "https://example.com/a", entry["url"])
	assert.Equal(t, float64(42), entry["article_id"])
}

func TestJobID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, JobIDFromContext(ctx))

	id := NewJobID()
	require.NotEmpty(t, id)
	assert.NotEqual(t, id, NewJobID())

	ctx = WithJobID(ctx, id)
	assert.Equal(t, id, JobIDFromContext(ctx))
}

func TestWithJob(t *testing.T) {
	var buf bytes.Buffer
	base := newLogger(&buf, slog.LevelInfo, false)

	t.Run("no job id returns same logger", func(t *testing.T) {
		assert.Same(t, base, WithJob(context.Background(), base))
	})

	t.Run("job id is attached", func(t *testing.T) {
		buf.Reset()
		ctx := WithJobID(context.Background(), "job-123")
		WithJob(ctx, base).Info("run")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "job-123", entry["job_id"])
	})
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := WithFields(newLogger(&buf, slog.LevelInfo, false), map[string]any{
		"source": "diario",
		"pages":  3,
	})
	logger.Info("done")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "diario", entry["source"])
	assert.Equal(t, float64(3), entry["pages"])
}

func TestFromContext(t *testing.T) {
	t.Run("falls back to default", func(t *testing.T) {
		assert.Same(t, slog.Default(), FromContext(context.Background()))
	})

	t.Run("returns stored logger with job id", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(&buf, slog.LevelInfo, false)
		ctx := WithJobID(WithLogger(context.Background(), logger), "job-9")

		FromContext(ctx).Info("hello")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "job-9", entry["job_id"])
	})
}

func BenchmarkLogger_Info(b *testing.B) {
	logger := newLogger(&bytes.Buffer{}, slog.LevelInfo, false)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark", slog.Int("i", i))
	}
}
