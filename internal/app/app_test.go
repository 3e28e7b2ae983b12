package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordermail/internal/config"
)

func TestNewOpensStoreAndRegistry(t *testing.T) {
	dir := t.TempDir()
	a, err := New(config.Config{
		DBPath:        filepath.Join(dir, "app.db"),
		SourcesFile:   filepath.Join(dir, "missing.yaml"),
		MessageSource: "pop3",
		LogLevel:      "error",
	})
	require.NoError(t, err)
	defer a.Close()

	assert.NotEmpty(t, a.Registry.Names())
	assert.Equal(t, "sqlite", a.DB.Dialect().String())

	_, err = a.Mailbox(context.Background())
	assert.ErrorContains(t, err, "unsupported message source")
}
