package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func restore(t *testing.T) {
	t.Helper()
	prev := L
	t.Cleanup(func() { L = prev })
}

func TestInitDisabledDiscards(t *testing.T) {
	restore(t)

	require.NoError(t, Init(Options{Enabled: true, Writer: &bytes.Buffer{}}))
	require.True(t, L.Enabled(t.Context(), slog.LevelError))

	require.NoError(t, Init(Options{Enabled: false}))
	require.False(t, L.Enabled(t.Context(), slog.LevelError))
	require.False(t, L.Enabled(t.Context(), slog.LevelDebug))
}

func TestDefaultLoggerIsOff(t *testing.T) {
	// Every test restores L, so this sees the package default. Records
	// must be dropped before they are built.
	for _, lvl := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		require.False(t, L.Enabled(t.Context(), lvl), "level %s", lvl)
	}
}

func TestInitWriterText(t *testing.T) {
	restore(t)

	var out bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Writer: &out, Level: slog.LevelDebug}))

	Debug("split block", "off", 48, "size", 64)
	require.Contains(t, out.String(), "split block")
	require.Contains(t, out.String(), "off=48")
}

func TestInitWriterJSON(t *testing.T) {
	restore(t)

	var out bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Writer: &out, JSON: true}))

	Debug("hidden")
	Warn("double free", "ptr", 72)
	require.NotContains(t, out.String(), "hidden", "default level is info")
	require.Contains(t, out.String(), `"msg":"double free"`)
}

func TestInitFileAndRetention(t *testing.T) {
	restore(t)

	dir := t.TempDir()
	stale := filepath.Join(dir, logPrefix+time.Now().AddDate(0, 0, -(retentionDays+5)).Format("2006-01-02")+logSuffix)
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	require.NoError(t, Init(Options{Enabled: true, LogDir: dir}))
	Info("setup", "len", 4096)

	_, err := os.Stat(stale)
	require.True(t, os.IsNotExist(err), "stale log should be removed")

	today := filepath.Join(dir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
	_, err = os.Stat(today)
	require.NoError(t, err)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	require.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	require.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestAllocTracing(t *testing.T) {
	t.Setenv(AllocTraceEnv, "")
	require.False(t, AllocTracing())
	t.Setenv(AllocTraceEnv, "1")
	require.True(t, AllocTracing())
}
