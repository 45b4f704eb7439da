package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Formats(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(&buf, "info", FormatJSON)
		require.NoError(t, err)

		l.Info("hello", "k", "v")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "INFO", line["level"])
		assert.Equal(t, "hello", line["msg"])
		assert.Equal(t, "v", line["k"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(&buf, "debug", FormatText)
		require.NoError(t, err)

		l.Debug("dbg", "a", 1)

		out := buf.String()
		assert.Contains(t, out, "level=DEBUG")
		assert.Contains(t, out, "msg=dbg")
		assert.Contains(t, out, "a=1")
	})

	t.Run("pretty", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(&buf, "info", FormatPretty)
		require.NoError(t, err)

		l.Info("ready", "port", 8080)
		assert.Contains(t, buf.String(), "ready")
		assert.Contains(t, buf.String(), "8080")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := New(&bytes.Buffer{}, "info", "xml")
		require.ErrorContains(t, err, `unknown log format "xml"`)
	})
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "WARN", FormatText)
	require.NoError(t, err)

	l.Info("skipped")
	l.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "skipped")
	assert.Contains(t, out, "level=WARN")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestFromContext(t *testing.T) {
	var fallbackBuf, ctxBuf bytes.Buffer
	fallback := slog.New(slog.NewTextHandler(&fallbackBuf, nil))
	scoped := slog.New(slog.NewTextHandler(&ctxBuf, nil))

	FromContext(context.Background(), fallback).Info("plain")
	assert.Contains(t, fallbackBuf.String(), "msg=plain")
	assert.NotContains(t, fallbackBuf.String(), "request_id")

	ctx := WithRequestID(WithLogger(context.Background(), scoped), "req-123")
	assert.Equal(t, "req-123", RequestID(ctx))

	FromContext(ctx, fallback).Info("scoped")
	assert.Contains(t, ctxBuf.String(), "request_id=req-123")
	assert.False(t, strings.Contains(fallbackBuf.String(), "scoped"))
}
