package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sardine-ai/dmx-artnet-checker/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLevel(t *testing.T) {
	logger := logrus.New()
	closer, err := Configure(logger, model.LoggingConfig{Level: "debug"}, t.TempDir())
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	_, err = Configure(logger, model.LoggingConfig{Level: "loud"}, t.TempDir())
	assert.Error(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestConfigureFileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := logrus.New()
	cfg := model.DefaultConfig().Logging

	closer, err := Configure(logger, cfg, dir)
	require.NoError(t, err)
	logger.Info("hello from the desk")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, cfg.LogFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the desk")
}

func TestConfigureBadSize(t *testing.T) {
	cfg := model.DefaultConfig().Logging
	cfg.MaxFileSize = "lots"
	_, err := Configure(logrus.New(), cfg, t.TempDir())
	assert.Error(t, err)
}

func TestMaxSizeBytes(t *testing.T) {
	n, err := MaxSizeBytes("10MB")
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000), n)

	n, err = MaxSizeBytes("")
	require.NoError(t, err)
	assert.Equal(t, uint64(defaultMaxSize), n)

	assert.Equal(t, 10, megabytes(10_000_000))
	assert.Equal(t, 1, megabytes(1))
}
