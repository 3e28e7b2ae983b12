package connectors

import (
	"context"
	"fmt"
	"log/slog"

	"ordermail/internal"
)

// Mailbox fetches raw messages, optionally archives them and parses them
// into documents.
type Mailbox struct {
	RawSource
	store *MailStore
	log   *slog.Logger
}

// NewMailbox wraps src. A nil store disables archiving.
func NewMailbox(src RawSource, store *MailStore, log *slog.Logger) *Mailbox {
	if log == nil {
		log = slog.Default()
	}
	return &Mailbox{RawSource: src, store: store, log: log}
}

func (m *Mailbox) Fetch(ctx context.Context, id string) (internal.Document, error) {
	raw, err := m.FetchRaw(ctx, id)
	if err != nil {
		return internal.Document{}, fmt.Errorf("fetch %s: %w", id, err)
	}
	if m.store != nil {
		if path, err := m.store.Store(raw); err != nil {
			m.log.Warn("archive raw message failed", "message_id", id, "error", err)
		} else {
			m.log.Debug("archived raw message", "message_id", id, "path", path)
		}
	}
	doc, err := ParseDocument(id, raw)
	if err != nil {
		return internal.Document{}, fmt.Errorf("parse %s: %w", id, err)
	}
	return doc, nil
}
