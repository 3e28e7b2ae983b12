package tracker

import (
	"context"
	"log/slog"
	"sync"

	"ordermail/internal/connectors"
)

// Tracker tags handled messages so discovery skips them next time. Only
// the processed label is excluded from searches; errored messages are
// retried.
type Tracker struct {
	src       connectors.MessageSource
	processed string
	errored   string
	log       *slog.Logger

	mu     sync.Mutex
	labels map[string]connectors.Label
}

func New(src connectors.MessageSource, processed, errored string, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		src:       src,
		processed: processed,
		errored:   errored,
		log:       log,
		labels:    map[string]connectors.Label{},
	}
}

func (t *Tracker) ExcludeLabel() string {
	return t.processed
}

func (t *Tracker) MarkProcessed(ctx context.Context, messageID string) bool {
	return t.mark(ctx, messageID, t.processed)
}

func (t *Tracker) MarkErrored(ctx context.Context, messageID string) bool {
	return t.mark(ctx, messageID, t.errored)
}

// mark never fails the caller; label trouble is logged and reported as
// false.
func (t *Tracker) mark(ctx context.Context, messageID, name string) bool {
	if name == "" {
		return false
	}
	label, err := t.label(ctx, name)
	if err != nil {
		t.log.Warn("ensure label failed", "label", name, "message_id", messageID, "error", err)
		return false
	}
	if err := t.src.ApplyLabel(ctx, messageID, label); err != nil {
		t.log.Warn("apply label failed", "label", name, "message_id", messageID, "error", err)
		return false
	}
	return true
}

func (t *Tracker) label(ctx context.Context, name string) (connectors.Label, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok := t.labels[name]; ok {
		return l, nil
	}
	l, err := t.src.EnsureLabel(ctx, name)
	if err != nil {
		return connectors.Label{}, err
	}
	t.labels[name] = l
	return l, nil
}
