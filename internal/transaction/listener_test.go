package transaction

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLogListener_OnScriptOutput(t *testing.T) {
	t.Run("logs each non-blank trimmed line", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
		l := NewLogListener(&logger)

		l.OnScriptOutput("pkgY", "  first line  \n\n   \nsecond line\n")

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 2)
		assert.Equal(t, "first line", entries[0]["message"])
		assert.Equal(t, "pkgY", entries[0]["package"])
		assert.Equal(t, "second line", entries[1]["message"])
	})

	t.Run("no-op when info is disabled", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf).Level(zerolog.WarnLevel)
		l := NewLogListener(&logger)

		l.OnScriptOutput("pkgY", "hello")
		assert.Empty(t, buf.String())
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		l := NewLogListener(nil)
		assert.NotPanics(t, func() {
			l.OnScriptOutput("pkg", "text")
			l.OnError("boom")
			l.OnPackageEvent("pkg", core.ActionInstall)
			l.OnProgress("pkg", 1, 2)
		})
	})
}

func TestLogListener_OnError(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.ErrorLevel)
	l := NewLogListener(&logger)

	l.OnError("error: scriptlet failed\n")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0]["level"])
	assert.Equal(t, "error: scriptlet failed", entries[0]["message"])
}

func TestLogListener_OnPackageEvent(t *testing.T) {
	t.Run("logs code and classified kind", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
		l := NewLogListener(&logger)

		l.OnPackageEvent("pkgX-1.0-1.x86_64", core.ActionErase)

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "pkgX-1.0-1.x86_64", entries[0]["package"])
		assert.Equal(t, "erase", entries[0]["action_code"])
		assert.Equal(t, "erase", entries[0]["action_type"])
	})

	t.Run("message carries the classified kind", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
		l := NewLogListener(&logger)

		l.OnPackageEvent("pkgY-2.0-1.noarch", core.ActionUpdate)

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "update", entries[0]["action_code"])
		assert.Equal(t, "upgrade", entries[0]["action_type"])
		assert.Equal(t, "upgrade: pkgY-2.0-1.noarch", entries[0]["message"])
	})

	t.Run("no-op when info is disabled", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf).Level(zerolog.ErrorLevel)
		l := NewLogListener(&logger)

		l.OnPackageEvent("pkgX", core.ActionErase)
		assert.Empty(t, buf.String())
	})
}

func TestLogListener_OnProgressIgnored(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.TraceLevel)
	l := NewLogListener(&logger)

	l.OnProgress("pkg", 10, 100)
	assert.Empty(t, buf.String())
}
