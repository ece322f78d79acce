package utils

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogLevel: "debug",
		LogDir:   tmpDir,
		LogFile:  "test.log",
	})

	assert.NoError(t, err)
	assert.NotNil(t, logger)

	err = logger.Close()
	assert.NoError(t, err)
}

func TestNewLogger_DefaultLevel(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogDir:  tmpDir,
		LogFile: "default.log",
	})

	assert.NoError(t, err)
	assert.NotNil(t, logger)

	err = logger.Close()
	assert.NoError(t, err)
}

func TestLogger_InfoWritesJSONFile(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogLevel: "info",
		LogDir:   tmpDir,
		LogFile:  "info.log",
	})
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("analysis run started")
	logger.Info("processed %d of %d records", 3, 10)

	data, err := os.ReadFile(filepath.Join(tmpDir, "info.log"))
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "analysis run started")
	assert.Contains(t, content, "processed 3 of 10 records")
}

func TestLogger_DebugSuppressedAtInfoLevel(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogLevel: "info",
		LogDir:   tmpDir,
		LogFile:  "suppress.log",
	})
	require.NoError(t, err)
	defer logger.Close()

	logger.Debug("should not appear")

	data, err := os.ReadFile(filepath.Join(tmpDir, "suppress.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should not appear")
}

func TestFormatLog(t *testing.T) {
	assert.Equal(t, "[BOOT] service started", FormatLog("BOOT", "service started"))
	assert.Equal(t, "[PIPELINE] done", FormatLog("PIPELINE", "done"))
	// messages that already carry a tag stay untouched
	assert.Equal(t, "[FETCH] already tagged", FormatLog("BOOT", "[FETCH] already tagged"))
	assert.Equal(t, "untagged", FormatLog("", "untagged"))
}

func TestCustomTextHandler_TaggedMessages(t *testing.T) {
	var sb strings.Builder
	handler := &CustomTextHandler{writer: &sb, level: slog.LevelDebug}

	logger := slog.New(handler)
	logger.Info("[PIPELINE] run complete")

	out := sb.String()
	assert.Contains(t, out, "[PIPELINE] run complete")
	// tagged lines use the module color, not the level tag
	assert.NotContains(t, out, "[INFO]")
}

func TestCustomTextHandler_Enabled(t *testing.T) {
	handler := &CustomTextHandler{writer: os.Stdout, level: slog.LevelWarn}

	assert.False(t, handler.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, handler.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, handler.Enabled(context.Background(), slog.LevelError))
}
