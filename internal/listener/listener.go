package listener

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"ordermail/internal"
	"ordermail/internal/storage"
)

// Runner is the batch entry point the listener drives.
type Runner interface {
	RunAll(ctx context.Context, names []string, max int) (internal.BatchResult, error)
}

type Options struct {
	Interval time.Duration
	Sources  []string
	BatchMax int
	// ExportDir, when set, receives fresh purchase and check-in workbooks
	// after every cycle that stored something.
	ExportDir string
}

// Service runs every configured source on a fixed interval until the
// context ends.
type Service struct {
	runner Runner
	db     *storage.DB
	opts   Options
	log    *slog.Logger
	export func(ctx context.Context, db *storage.DB, dir string, at time.Time) error
}

func NewService(runner Runner, db *storage.DB, opts Options, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	return &Service{runner: runner, db: db, opts: opts, log: log.With("component", "listener"), export: exportCycle}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			s.log.Error("listener cycle error", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.opts.Interval):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	start := time.Now()
	res, err := s.runner.RunAll(ctx, s.opts.Sources, s.opts.BatchMax)
	if err != nil {
		return err
	}

	if s.opts.ExportDir != "" && s.db != nil && res.ItemsStored > 0 {
		if err := s.export(ctx, s.db, s.opts.ExportDir, start); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	s.log.Info("listener cycle done",
		"found", res.TotalFound,
		"processed", res.Processed,
		"duplicates", res.SkippedDuplicate,
		"errors", res.Errors,
		"items_stored", res.ItemsStored,
		"elapsed", time.Since(start),
	)
	return nil
}

// Filenames are stamped with the cycle start so each cycle writes its own pair.
func exportPaths(dir string, at time.Time) (purchases, checkins string) {
	stamp := at.UTC().Format("20060102T150405Z")
	return filepath.Join(dir, "purchases_"+stamp+".xlsx"), filepath.Join(dir, "checkins_"+stamp+".xlsx")
}
