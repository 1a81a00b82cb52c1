package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestJSONFieldsAreAttached(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "json").WithDimension(7).WithSeed(227).WithRunID("abc")

	log.LogCandidate(context.Background(), 3, "stalled", 400, 1e-3, false)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "candidate finished", rec["msg"])
	assert.Equal(t, float64(7), rec["dimension"])
	assert.Equal(t, float64(227), rec["seed"])
	assert.Equal(t, "abc", rec["run_id"])
	assert.Equal(t, "stalled", rec["status"])
	assert.Equal(t, float64(3), rec["candidate"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "text")

	log.LogCandidate(context.Background(), 0, "stalled", 100, 0.5, false)
	assert.Empty(t, buf.String())

	log.LogCandidate(context.Background(), 0, "converged", 100, 1e-16, true)
	assert.Contains(t, buf.String(), "fiducial found")
}

func TestRunOutcomes(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "text")
	ctx := context.Background()

	log.LogRun(ctx, false, 100, time.Second, nil)
	assert.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	log.LogRun(ctx, true, 2, time.Second, nil)
	assert.Contains(t, buf.String(), "search completed")

	buf.Reset()
	log.LogPersist(ctx, "out/x.txt", errors.New("disk full"))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "disk full")
}

func TestNoopLoggerIsSilent(t *testing.T) {
	log := NoopLogger()
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
	log.LogSeed(context.Background(), 1, true, time.Millisecond)
}
