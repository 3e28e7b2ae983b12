package listener

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordermail/internal"
	"ordermail/internal/storage"
)

type stubRunner struct {
	mu     sync.Mutex
	calls  int
	names  []string
	result internal.BatchResult
	err    error
	onCall func(n int)
}

func (r *stubRunner) RunAll(_ context.Context, names []string, max int) (internal.BatchResult, error) {
	r.mu.Lock()
	r.calls++
	r.names = names
	n := r.calls
	r.mu.Unlock()
	if r.onCall != nil {
		r.onCall(n)
	}
	return r.result, r.err
}

func TestRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &stubRunner{err: errors.New("mailbox down")}
	runner.onCall = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	svc := NewService(runner, nil, Options{Interval: time.Millisecond, Sources: []string{"prepworx"}}, nil)
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
	assert.Equal(t, 2, runner.calls)
	assert.Equal(t, []string{"prepworx"}, runner.names)
}

func TestCycleExportsOnlyWhenStored(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer db.Close()

	exports := 0
	runner := &stubRunner{}
	svc := NewService(runner, db, Options{ExportDir: t.TempDir()}, nil)
	svc.export = func(context.Context, *storage.DB, string, time.Time) error {
		exports++
		return nil
	}

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Equal(t, 0, exports)

	runner.result = internal.BatchResult{ItemsStored: 2}
	require.NoError(t, svc.runCycle(context.Background()))
	assert.Equal(t, 1, exports)
}

func TestExportCycleWritesNothingWhenEmpty(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer db.Close()

	dir := t.TempDir()
	require.NoError(t, exportCycle(context.Background(), db, dir, time.Now()))
	matches, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestExportPaths(t *testing.T) {
	p, c := exportPaths("/out", time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
	assert.Equal(t, "/out/purchases_20260304T050607Z.xlsx", p)
	assert.Equal(t, "/out/checkins_20260304T050607Z.xlsx", c)
}
