// Package app wires configuration, logging, storage, sources and the
// mailbox for the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ordermail/internal/config"
	"ordermail/internal/connectors"
	gmailconnector "ordermail/internal/connectors/gmail"
	imapconnector "ordermail/internal/connectors/imap"
	"ordermail/internal/listener"
	"ordermail/internal/pipeline"
	"ordermail/internal/sources"
	"ordermail/internal/storage"
)

type App struct {
	Cfg      config.Config
	Log      *slog.Logger
	DB       *storage.DB
	Registry *sources.Registry

	closers []func() error
}

func New(cfg config.Config) (*App, error) {
	log, closeLog := config.SetupLogger(cfg.LogFile, config.ParseLevel(cfg.LogLevel))
	slog.SetDefault(log)
	a := &App{Cfg: cfg, Log: log, closers: []func() error{closeLog}}

	db, err := storage.Open(cfg.DSN())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)
	log.Debug("storage opened", "dialect", db.Dialect())

	a.Registry = sources.NewRegistry(log)
	if err := a.Registry.LoadOverrides(cfg.SourcesFile); err != nil {
		a.Close()
		return nil, fmt.Errorf("load source overrides: %w", err)
	}
	return a, nil
}

// Mailbox connects the configured message source.
func (a *App) Mailbox(ctx context.Context) (connectors.MessageSource, error) {
	var raw connectors.RawSource
	switch a.Cfg.MessageSource {
	case "gmail":
		c, err := gmailconnector.NewConnector(ctx, a.Cfg, a.Log)
		if err != nil {
			return nil, err
		}
		raw = c
	case "imap":
		c, err := imapconnector.NewConnector(a.Cfg, a.Log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		raw = c
	default:
		return nil, fmt.Errorf("unsupported message source: %s", a.Cfg.MessageSource)
	}

	var store *connectors.MailStore
	if a.Cfg.ArchiveRaw {
		store = connectors.NewMailStore(a.Cfg.RawMailDir)
	}
	return connectors.NewMailbox(raw, store, a.Log), nil
}

func (a *App) Service(ctx context.Context) (*pipeline.Service, error) {
	mail, err := a.Mailbox(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.NewService(a.DB, mail, a.Registry, a.Cfg, a.Log), nil
}

// Listener builds the interval runner over every configured source.
func (a *App) Listener(ctx context.Context, exportDir string) (*listener.Service, error) {
	svc, err := a.Service(ctx)
	if err != nil {
		return nil, err
	}
	return listener.NewService(svc, a.DB, listener.Options{
		Interval:  time.Duration(a.Cfg.ListenerIntervalSec) * time.Second,
		Sources:   a.Cfg.ListenerSources,
		BatchMax:  a.Cfg.BatchMax,
		ExportDir: exportDir,
	}, a.Log), nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.Log != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
