package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/textproto"
	"strconv"
	"strings"
	"sync"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"ordermail/internal"
	"ordermail/internal/config"
	"ordermail/internal/connectors"
)

// Connector reads one mailbox over IMAP. Labels are stored as IMAP
// keywords on the message.
type Connector struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	mailbox  string
	log      *slog.Logger

	mu     sync.Mutex
	client *imapclient.Client
}

func NewConnector(cfg config.Config, log *slog.Logger) (*Connector, error) {
	if err := cfg.Require("IMAP_HOST", cfg.IMAPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_USER", cfg.IMAPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_PASSWORD", cfg.IMAPPassword); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	return &Connector{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		mailbox:  cfg.IMAPMailbox,
		log:      log.With("provider", "imap"),
	}, nil
}

// conn returns the session, dialing and selecting the mailbox on first
// use. Callers hold c.mu.
func (c *Connector) conn() (*imapclient.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	var (
		client *imapclient.Client
		err    error
	)
	if c.secure {
		client, err = imapclient.DialTLS(addr, &tls.Config{ServerName: c.host})
	} else {
		client, err = imapclient.Dial(addr)
	}
	if err != nil {
		return nil, err
	}
	if err := client.Login(c.user, c.password); err != nil {
		_ = client.Logout()
		return nil, err
	}
	status, err := client.Select(c.mailbox, false)
	if err != nil {
		_ = client.Logout()
		return nil, err
	}
	if !allowsKeywords(status.PermanentFlags) {
		c.log.Warn("mailbox may not persist custom keywords", "mailbox", c.mailbox)
	}
	c.client = client
	return client, nil
}

// with runs fn on the session and drops the session when fn fails so the
// next call reconnects.
func (c *Connector) with(ctx context.Context, fn func(*imapclient.Client) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	client, err := c.conn()
	if err != nil {
		return err
	}
	if err := fn(client); err != nil {
		_ = client.Logout()
		c.client = nil
		return err
	}
	return nil
}

func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Logout()
	c.client = nil
	return err
}

// Search returns UIDs, newest first, of messages matching query that do
// not carry the excludeLabel keyword.
func (c *Connector) Search(ctx context.Context, query internal.SearchQuery, excludeLabel string, max int) ([]string, error) {
	criteria := buildCriteria(query, excludeLabel)

	var uids []uint32
	err := c.with(ctx, func(client *imapclient.Client) (err error) {
		uids, err = client.UidSearch(criteria)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}

	if max > 0 && len(uids) > max {
		uids = uids[len(uids)-max:]
	}
	out := make([]string, 0, len(uids))
	for i := len(uids) - 1; i >= 0; i-- {
		out = append(out, strconv.FormatUint(uint64(uids[i]), 10))
	}
	return out, nil
}

func (c *Connector) FetchRaw(ctx context.Context, id string) ([]byte, error) {
	seqset, err := uidSet(id)
	if err != nil {
		return nil, err
	}

	section := &imap.BodySectionName{Peek: true}
	var raw []byte
	err = c.with(ctx, func(client *imapclient.Client) error {
		messages := make(chan *imap.Message, 1)
		done := make(chan error, 1)
		go func() { done <- client.UidFetch(seqset, []imap.FetchItem{imap.FetchUid, section.FetchItem()}, messages) }()

		blob, readErr := readFirstBody(messages, section)
		if err := <-done; err != nil {
			return err
		}
		raw = blob
		return readErr
	})
	if err != nil {
		return nil, fmt.Errorf("imap fetch %s: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("imap message %s not found", id)
	}
	return raw, nil
}

// readFirstBody keeps the first readable body and drains messages until
// the fetch closes it.
func readFirstBody(messages <-chan *imap.Message, section *imap.BodySectionName) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	for msg := range messages {
		if msg == nil || raw != nil || err != nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err = io.ReadAll(body)
	}
	return raw, err
}

// EnsureLabel maps name to its keyword. Keywords need no creation.
func (c *Connector) EnsureLabel(_ context.Context, name string) (connectors.Label, error) {
	kw := Keyword(name)
	if kw == "" {
		return connectors.Label{}, fmt.Errorf("empty label name")
	}
	return connectors.Label{ID: kw, Name: name}, nil
}

func (c *Connector) ApplyLabel(ctx context.Context, id string, label connectors.Label) error {
	seqset, err := uidSet(id)
	if err != nil {
		return err
	}
	return c.with(ctx, func(client *imapclient.Client) error {
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		return client.UidStore(seqset, item, []interface{}{label.ID}, nil)
	})
}

// Keyword turns a label name into an IMAP keyword atom.
func Keyword(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ' || r == '(' || r == ')' || r == '{' || r == '%' || r == '*' || r == '"' || r == '\\' || r == ']':
			return '_'
		case r < 0x21 || r > 0x7e:
			return -1
		}
		return r
	}, strings.TrimSpace(name))
}

func buildCriteria(query internal.SearchQuery, excludeLabel string) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	if criteria.Header == nil {
		criteria.Header = textproto.MIMEHeader{}
	}

	switch len(query.From) {
	case 0:
	case 1:
		criteria.Header.Add("From", query.From[0])
	default:
		var either *imap.SearchCriteria
		for _, from := range query.From {
			one := &imap.SearchCriteria{Header: textproto.MIMEHeader{"From": {from}}}
			if either == nil {
				either = one
				continue
			}
			either = &imap.SearchCriteria{Or: [][2]*imap.SearchCriteria{{either, one}}}
		}
		criteria.Or = either.Or
	}
	if s := strings.TrimSpace(query.Subject); s != "" {
		criteria.Header.Add("Subject", s)
	}
	if excludeLabel != "" {
		criteria.WithoutFlags = []string{Keyword(excludeLabel)}
	}
	return criteria
}

func uidSet(id string) (*imap.SeqSet, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid imap uid %q: %w", id, err)
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))
	return seqset, nil
}

func allowsKeywords(flags []string) bool {
	for _, f := range flags {
		if f == imap.TryCreateFlag {
			return true
		}
	}
	return false
}
