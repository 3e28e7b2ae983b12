package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"ordermail/internal"
	"ordermail/internal/config"
	"ordermail/internal/connectors"
)

const maxAttempts = 5

type Connector struct {
	service *gmail.Service
	limiter *rate.Limiter
	log     *slog.Logger

	mu     sync.Mutex
	labels map[string]connectors.Label
}

func NewConnector(ctx context.Context, cfg config.Config, log *slog.Logger) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailModifyScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	rps := cfg.GmailRateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Connector{
		service: svc,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log.With("provider", "gmail"),
		labels:  map[string]connectors.Label{},
	}, nil
}

// Search lists message ids for query, newest first, up to max.
func (c *Connector) Search(ctx context.Context, query internal.SearchQuery, excludeLabel string, max int) ([]string, error) {
	q := BuildQuery(query, excludeLabel)
	c.log.Info("searching mailbox", "query", q, "max", max)

	var (
		ids       []string
		pageToken string
	)
	for {
		call := c.service.Users.Messages.List("me").Q(q).Context(ctx)
		if max > 0 {
			call = call.MaxResults(int64(max - len(ids)))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var resp *gmail.ListMessagesResponse
		err := c.do(ctx, func() (err error) {
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		for _, m := range resp.Messages {
			if m.Id != "" {
				ids = append(ids, m.Id)
			}
		}
		if resp.NextPageToken == "" || (max > 0 && len(ids) >= max) {
			break
		}
		pageToken = resp.NextPageToken
	}
	return ids, nil
}

func (c *Connector) FetchRaw(ctx context.Context, id string) ([]byte, error) {
	var msg *gmail.Message
	err := c.do(ctx, func() (err error) {
		msg, err = c.service.Users.Messages.Get("me", id).Format("raw").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	if msg.Raw == "" {
		return nil, fmt.Errorf("message %s has no raw payload", id)
	}
	return decodeBase64URL(msg.Raw)
}

// EnsureLabel returns the label named name, creating it when missing.
// Handles are cached for the life of the connector.
func (c *Connector) EnsureLabel(ctx context.Context, name string) (connectors.Label, error) {
	c.mu.Lock()
	if l, ok := c.labels[name]; ok {
		c.mu.Unlock()
		return l, nil
	}
	c.mu.Unlock()

	var list *gmail.ListLabelsResponse
	err := c.do(ctx, func() (err error) {
		list, err = c.service.Users.Labels.List("me").Context(ctx).Do()
		return err
	})
	if err != nil {
		return connectors.Label{}, fmt.Errorf("list labels: %w", err)
	}

	label := connectors.Label{Name: name}
	for _, l := range list.Labels {
		if l.Name == name {
			label.ID = l.Id
			break
		}
	}
	if label.ID == "" {
		var created *gmail.Label
		err := c.do(ctx, func() (err error) {
			created, err = c.service.Users.Labels.Create("me", &gmail.Label{
				Name:                  name,
				LabelListVisibility:   "labelShow",
				MessageListVisibility: "show",
			}).Context(ctx).Do()
			return err
		})
		if err != nil {
			return connectors.Label{}, fmt.Errorf("create label %s: %w", name, err)
		}
		label.ID = created.Id
		c.log.Info("created label", "label", name, "label_id", label.ID)
	}

	c.mu.Lock()
	c.labels[name] = label
	c.mu.Unlock()
	return label, nil
}

func (c *Connector) ApplyLabel(ctx context.Context, id string, label connectors.Label) error {
	return c.do(ctx, func() error {
		_, err := c.service.Users.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
			AddLabelIds: []string{label.ID},
		}).Context(ctx).Do()
		return err
	})
}

// do runs one API call under the rate limit, retrying throttled and
// transient server errors with jittered backoff.
func (c *Connector) do(ctx context.Context, call func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		lastErr = call()
		if lastErr == nil || !isRetryable(lastErr) || attempt == maxAttempts {
			return lastErr
		}
		backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
		c.log.Debug("retrying gmail call", "attempt", attempt, "backoff", backoff, "error", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return lastErr
}

func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// BuildQuery renders the Gmail search string for query, excluding
// messages that already carry excludeLabel.
func BuildQuery(query internal.SearchQuery, excludeLabel string) string {
	var parts []string
	switch len(query.From) {
	case 0:
	case 1:
		parts = append(parts, "from:"+query.From[0])
	default:
		parts = append(parts, "from:("+strings.Join(query.From, " OR ")+")")
	}
	if s := strings.TrimSpace(query.Subject); s != "" {
		if query.Exact {
			parts = append(parts, `subject:"`+strings.ReplaceAll(s, `"`, "")+`"`)
		} else {
			parts = append(parts, "subject:("+s+")")
		}
	}
	if excludeLabel != "" {
		parts = append(parts, "-label:"+labelQueryName(excludeLabel))
	}
	return strings.Join(parts, " ")
}

// labelQueryName is the search spelling of a label name.
func labelQueryName(name string) string {
	return strings.NewReplacer("/", "-", " ", "-").Replace(strings.TrimSpace(name))
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
