package connectors

import (
	"context"

	"ordermail/internal"
)

// Label is a provider label handle. Gmail labels carry an opaque id; IMAP
// keywords use the name for both.
type Label struct {
	ID   string
	Name string
}

// MessageSource is the mailbox the pipeline reads from and tags.
type MessageSource interface {
	Fetch(ctx context.Context, id string) (internal.Document, error)
	Search(ctx context.Context, query internal.SearchQuery, excludeLabel string, max int) ([]string, error)
	EnsureLabel(ctx context.Context, name string) (Label, error)
	ApplyLabel(ctx context.Context, id string, label Label) error
}

// RawSource is a provider that returns raw RFC 822 messages. Mailbox turns
// it into a MessageSource.
type RawSource interface {
	FetchRaw(ctx context.Context, id string) ([]byte, error)
	Search(ctx context.Context, query internal.SearchQuery, excludeLabel string, max int) ([]string, error)
	EnsureLabel(ctx context.Context, name string) (Label, error)
	ApplyLabel(ctx context.Context, id string, label Label) error
}
