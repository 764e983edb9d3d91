package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/config"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "etl.log")

	log, err := New(config.Logging{Level: "info", Encoding: "json", File: path})
	require.NoError(t, err)

	log.Info("hello", zap.Int("rows", 3))
	log.Debug("hidden")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"rows":3`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(config.Logging{Level: "chatty"})
	assert.Error(t, err)
}

func TestStageTagsEntries(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	Stage(zap.New(core), "load").Info("batch committed")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "load", entry.LoggerName)
	assert.Equal(t, "load", entry.ContextMap()["stage"])

	assert.NotNil(t, Stage(nil, "extract"))
}
