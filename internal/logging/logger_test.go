package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xreply/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetNamesLoggerByCategory(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Use(zap.New(core), config.LoggingConfig{})

	Get(CategoryScraper).Info("profile lookup", zap.String("handle", "@alice"))
	Boot("started")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "scraper", entries[0].LoggerName)
	assert.Equal(t, "@alice", entries[0].ContextMap()["handle"])
	assert.Equal(t, "boot", entries[1].LoggerName)
}

func TestDisabledCategoryIsSilent(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Use(zap.New(core), config.LoggingConfig{Categories: map[string]bool{"browser": false}})

	Get(CategoryBrowser).Error("launch failed")
	Get(CategoryStore).Info("saved")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "store", logs.All()[0].LoggerName)
	assert.False(t, IsCategoryEnabled(CategoryBrowser))
}

func TestInitializeWritesFileAndHonoursLevel(t *testing.T) {
	t.Cleanup(func() { Use(nil, config.LoggingConfig{}) })

	path := filepath.Join(t.TempDir(), "logs", "xreply.log")
	logger, err := Initialize(config.LoggingConfig{Level: "warn", Format: "json", File: path}, false)
	require.NoError(t, err)

	Get(CategoryPipeline).Info("dropped")
	Get(CategoryPipeline).Warn("kept")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, `"msg":"kept"`), out)
	assert.False(t, strings.Contains(out, "dropped"), out)
	assert.Contains(t, out, `"logger":"pipeline"`)
}

func TestInitializeVerboseForcesDebug(t *testing.T) {
	t.Cleanup(func() { Use(nil, config.LoggingConfig{}) })

	logger, err := Initialize(config.LoggingConfig{Level: "error", Format: "console"}, true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestInitializeRejectsUnknownLevel(t *testing.T) {
	_, err := Initialize(config.LoggingConfig{Level: "chatty"}, false)
	require.Error(t, err)
}
