package app

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pevans/ffscrape/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOpen verifies every component is built and storage is created
func TestOpen(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default(dir)

	a, err := Open(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Scraper)
	assert.NotNil(t, a.Ingest)
	assert.NotNil(t, a.Loader)
	assert.Len(t, a.Registry.Sites(), 3)

	_, err = os.Stat(filepath.Join(dir, "library"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "history.db"))
	assert.NoError(t, err)
}

// TestOpen_InvalidConfig verifies bad settings are rejected before
// anything is opened
func TestOpen_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.Scrape.Concurrency = 0

	_, err := Open(cfg, nil)
	assert.Error(t, err)

	_, err = os.Stat(filepath.Join(dir, "library"))
	assert.True(t, os.IsNotExist(err))
}

// TestNewLogger verifies the level is honored
func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Info("quiet")
	assert.Empty(t, buf.String())

	logger.Warn("loud", "url", "http://example.com")
	assert.Contains(t, buf.String(), "loud")
	assert.Contains(t, buf.String(), "http://example.com")
}
