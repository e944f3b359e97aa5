package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, level, file string) (*Logger, string, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	console := &bytes.Buffer{}
	logger, err := New(Config{Level: level, Dir: dir, Filename: file, Console: console})
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })
	return logger, filepath.Join(dir, file), console
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestNew_DefaultFilename(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Dir: dir, Console: &bytes.Buffer{}})
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("hello")
	assert.FileExists(t, filepath.Join(dir, "server.log"))
}

func TestNew_ConsoleOnly(t *testing.T) {
	console := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Console: console})
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("console only")
	assert.Contains(t, console.String(), "console only")
}

func TestLogger_WritesBothSinks(t *testing.T) {
	logger, path, console := newTestLogger(t, "info", "info.log")

	logger.Info("test info message")

	assert.Contains(t, readLog(t, path), "test info message")
	assert.Contains(t, console.String(), "[INFO]")
	assert.Contains(t, console.String(), "test info message")
}

func TestLogger_FormatAndStructured(t *testing.T) {
	logger, path, _ := newTestLogger(t, "debug", "args.log")

	logger.Info("caption for %s took %dms", "cat.png", 42)
	logger.Info("structured", map[string]any{"filename": "dog.jpg", "bytes": 1024})

	content := readLog(t, path)
	assert.Contains(t, content, "caption for cat.png took 42ms")
	assert.Contains(t, content, `"filename":"dog.jpg"`)
	assert.Contains(t, content, `"bytes":1024`)
}

func TestLogger_Tags(t *testing.T) {
	logger, path, console := newTestLogger(t, "debug", "tags.log")

	logger.InfoTag("Caption", "captioned %s", "cat.png")
	logger.WarnTag("Vector", "slow upsert")
	logger.ErrorTag("LLM", "empty response")
	logger.DebugTag("HTTP", "debug line")

	content := readLog(t, path)
	for _, want := range []string{"[Caption] captioned cat.png", "[Vector] slow upsert", "[LLM] empty response", "[HTTP] debug line"} {
		assert.Contains(t, content, want)
	}
	assert.Contains(t, console.String(), tagColors["[Caption]"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, path, _ := newTestLogger(t, "error", "filter.log")

	logger.Debug("this should not appear")
	logger.Info("this should not appear either")
	logger.Warn("this should not appear")
	logger.Error("this should appear")

	content := readLog(t, path)
	assert.NotContains(t, content, "this should not appear")
	assert.Contains(t, content, "this should appear")
}

func TestLogger_NilSafe(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.InfoTag("HTTP", "nothing")
		_ = logger.Close()
	})
}

func TestLogger_CloseTwice(t *testing.T) {
	logger, _, _ := newTestLogger(t, "info", "close.log")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
	assert.NotPanics(t, func() { logger.Info("after close") })
}

func TestLogger_Rotation(t *testing.T) {
	logger, path, _ := newTestLogger(t, "info", "rotate.log")
	dir := filepath.Dir(path)

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	logger.currentDate = yesterday
	logger.Info("before rotation")

	stale := filepath.Join(dir, "rotate-2000-01-01.log")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	logger.checkAndRotate(time.Now())
	logger.Info("after rotation")

	archived := filepath.Join(dir, "rotate-"+yesterday+".log")
	assert.Contains(t, readLog(t, archived), "before rotation")
	assert.Contains(t, readLog(t, path), "after rotation")
	assert.NoFileExists(t, stale)
}

func TestFormatLog(t *testing.T) {
	tests := []struct {
		tag, msg, want string
	}{
		{"HTTP", "ready", "[HTTP] ready"},
		{"", "plain", "plain"},
		{"HTTP", "[Vector] already tagged", "[Vector] already tagged"},
		{" LLM ", " spaced ", "[LLM] spaced"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatLog(tt.tag, tt.msg))
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.input), "input: %s", tt.input)
	}
}

func TestConsoleHandler_Enabled(t *testing.T) {
	handler := &consoleHandler{writer: &strings.Builder{}, level: slog.LevelInfo}

	assert.True(t, handler.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, handler.Enabled(context.Background(), slog.LevelError))
	assert.False(t, handler.Enabled(context.Background(), slog.LevelDebug))
}

func TestLogger_ConcurrentLogging(t *testing.T) {
	logger, path, _ := newTestLogger(t, "debug", "concurrent.log")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			logger.Info("concurrent message number", idx)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, strings.Count(readLog(t, path), "concurrent message number"))
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() {
		logger.ErrorTag("HTTP", "dropped %d", 1)
		assert.NotNil(t, logger.Slog())
	})
}
