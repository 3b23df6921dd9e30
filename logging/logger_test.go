package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LogLevelDebug, false},
		{"INFO", LogLevelInfo, false},
		{"", LogLevelInfo, false},
		{"warning", LogLevelWarn, false},
		{"error", LogLevelError, false},
		{"verbose", LogLevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapter(NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: FormatJSON, Output: &buf}))

	l.Debug("hidden")
	l.Info("reply.result", "run_id", "r1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "reply.result", entry["msg"])
	assert.Equal(t, "r1", entry["run_id"])
}

func TestNewLogger_TextAndConsole(t *testing.T) {
	for _, format := range []string{FormatText, FormatConsole} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewSlogAdapter(NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: format, Output: &buf}))
			l.Error("tool failed", "error", errors.New("boom"))
			assert.Contains(t, buf.String(), "tool failed")
			assert.Contains(t, buf.String(), "boom")
		})
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	base := NewSlogAdapter(NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: FormatText, Output: &buf}))

	With(base, "request_id", "abc").Info("hello")
	assert.Contains(t, buf.String(), "request_id=abc")

	noop := NoOpLogger{}
	assert.Equal(t, Logger(noop), With(noop, "k", "v"))
}
