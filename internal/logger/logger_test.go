package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})

	log.Info("linked category", "created", 3)

	assert.Contains(t, buf.String(), "linked category")
	assert.Contains(t, buf.String(), `"level":"INFO"`)
	assert.Contains(t, buf.String(), `"created":3`)
}

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{name: "production uses json", environment: "production", wantJSON: true},
		{name: "development uses pretty", environment: "development", wantJSON: false},
		{name: "empty uses pretty", environment: "", wantJSON: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Writer: &buf, Environment: tt.environment, Level: slog.LevelInfo})
			log.Info("hello")

			isJSON := strings.HasPrefix(strings.TrimSpace(buf.String()), "{")
			assert.Equal(t, tt.wantJSON, isJSON, buf.String())
		})
	}
}

func TestNew_NonTerminalWriterHasNoColor(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelInfo})

	log.Info("plain")

	assert.NotContains(t, buf.String(), "\033[")
	assert.Contains(t, buf.String(), "INF plain")
}

func TestNew_ForcedColor(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelInfo, Color: boolPtr(true)})

	log.Warn("colored")

	assert.Contains(t, buf.String(), colorYellow+"WRN"+colorReset)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}, false)

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_NilOptionsDefaultsToInfo(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, nil, false)

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil, false)

	r := slog.NewRecord(time.Date(2024, 5, 1, 13, 4, 5, 0, time.UTC), slog.LevelInfo, "image not found", 0)
	r.AddAttrs(slog.String("path", "/data/img 1.png"), slog.Int("missing", 2))
	require.NoError(t, h.Handle(context.Background(), r))

	assert.Equal(t, "13:04:05 INF image not found path=\"/data/img 1.png\" missing=2\n", buf.String())
}

func TestPrettyHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	var h slog.Handler = NewPrettyHandler(&buf, nil, false)
	h = h.WithAttrs([]slog.Attr{slog.String("run_id", "build-abc")})
	h = h.WithGroup("summary")

	log := slog.New(h)
	log.Info("done", "created", 4)

	out := buf.String()
	assert.Contains(t, out, "run_id=build-abc")
	assert.Contains(t, out, "summary.created=4")
}

func TestPrettyHandler_LevelFormatting(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, "DBG"},
		{slog.LevelInfo, "INF"},
		{slog.LevelWarn, "WRN"},
		{slog.LevelError, "ERR"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, _ := formatLevel(tt.level)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "plain", formatValue(slog.StringValue("plain")))
	assert.Equal(t, `"has space"`, formatValue(slog.StringValue("has space")))
	assert.Equal(t, "1.5s", formatValue(slog.DurationValue(1500*time.Millisecond)))
	assert.Equal(t, "42", formatValue(slog.IntValue(42)))
}

func TestLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json", Level: slog.LevelDebug})

	log.WithRun("build-structure", "build-123").
		WithCategory("bottle").
		WithError(errors.New("boom")).
		Debug("category failed")

	out := buf.String()
	assert.Contains(t, out, `"tool":"build-structure"`)
	assert.Contains(t, out, `"run_id":"build-123"`)
	assert.Contains(t, out, `"category":"bottle"`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json", Level: slog.LevelWarn})

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestDiscard(t *testing.T) {
	log := Discard()
	require.NotNil(t, log)
	log.Error("nothing to see")
}
