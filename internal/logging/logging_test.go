package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/config"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelError, levelFromString("ERROR"))
	assert.Equal(t, slog.LevelWarn, levelFromString(" warning "))
	assert.Equal(t, slog.LevelInfo, levelFromString("info"))
	assert.Equal(t, slog.LevelDebug, levelFromString(""))
}

func TestFromConfigWritesRotatedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "newsdigest.log")
	logger, closer := FromConfig(config.LoggingConfig{Level: "info", File: path, MaxSizeMB: 1})
	logger.Info("digest delivered", "records", 3)
	logger.Debug("hidden")
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "digest delivered")
	assert.Contains(t, string(raw), "records=3")
	assert.NotContains(t, string(raw), "hidden")
}

func TestFromConfigWithoutFile(t *testing.T) {
	t.Parallel()

	logger, closer := FromConfig(config.LoggingConfig{Level: "warn"})
	require.NotNil(t, logger)
	assert.NoError(t, closer.Close())
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
}
