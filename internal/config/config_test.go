package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("MAX_ERROR_MESSAGES", "")
	t.Setenv("BATCH_MAX", "25")
	t.Setenv("ARCHIVE_RAW", "yes")
	t.Setenv("LISTENER_SOURCES", "footlocker, prepworx,,")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxErrorMessages)
	assert.Equal(t, 25, cfg.BatchMax)
	assert.True(t, cfg.ArchiveRaw)
	assert.Equal(t, []string{"footlocker", "prepworx"}, cfg.ListenerSources)
	assert.Equal(t, cfg.DBPath, cfg.DSN())

	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/orders")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/orders", cfg.DSN())
}

func TestRequire(t *testing.T) {
	var cfg Config
	assert.Error(t, cfg.Require("GMAIL_CLIENT_ID", "  "))
	assert.NoError(t, cfg.Require("GMAIL_CLIENT_ID", "x"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestLoggerFanout(t *testing.T) {
	var stderr, file bytes.Buffer
	log := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)
	log.Info("order stored", "order_number", "P1")
	log.Debug("hidden")

	assert.Contains(t, stderr.String(), "order_number=P1")
	assert.NotContains(t, stderr.String(), "hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(file.String())), &entry))
	assert.Equal(t, "P1", entry["order_number"])
}
