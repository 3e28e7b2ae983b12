package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ordermail/internal"
	"ordermail/internal/config"
	"ordermail/internal/connectors"
	"ordermail/internal/reconcile"
	"ordermail/internal/sources"
	"ordermail/internal/storage"
	"ordermail/internal/tracker"
)

type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeErrored   Outcome = "errored"
	OutcomeIgnored   Outcome = "ignored"
)

// Service runs sources end to end: discovery, extraction, reconciliation,
// writing and tagging.
type Service struct {
	db        *storage.DB
	mail      connectors.MessageSource
	registry  *sources.Registry
	writer    *Writer
	trackers  map[internal.SourceKind]*tracker.Tracker
	maxErrors int
	log       *slog.Logger
}

func NewService(db *storage.DB, mail connectors.MessageSource, registry *sources.Registry, cfg config.Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	maxErrors := cfg.MaxErrorMessages
	if maxErrors <= 0 {
		maxErrors = 50
	}
	return &Service{
		db:       db,
		mail:     mail,
		registry: registry,
		writer:   NewWriter(db, reconcile.NewEngine(log), log),
		trackers: map[internal.SourceKind]*tracker.Tracker{
			internal.KindOrder:    tracker.New(mail, cfg.OrderProcessedLabel, cfg.OrderErrorLabel, log),
			internal.KindShipment: tracker.New(mail, cfg.ShipmentProcessedLabel, cfg.ShipmentErrorLabel, log),
		},
		maxErrors: maxErrors,
		log:       log,
	}
}

// DocumentResult is the outcome of one document.
type DocumentResult struct {
	MessageID string
	Source    string
	Outcome   Outcome
	Order     internal.OrderExtract
	Write     WriteResult
	Err       error
}

// RunSource processes up to max untagged documents for one source. It
// only fails when the source is unknown or discovery fails; every
// per-document problem lands in the result.
func (s *Service) RunSource(ctx context.Context, name string, max int) (internal.BatchResult, error) {
	start := time.Now()
	result := internal.BatchResult{Source: name, ErrorMessages: []string{}}

	src, err := s.registry.Get(name)
	if err != nil {
		return result, err
	}
	log := s.log.With("source", name)
	tr := s.trackers[src.Kind]

	ids, err := s.mail.Search(ctx, src.Query, tr.ExcludeLabel(), max)
	if err != nil {
		return result, fmt.Errorf("search %s: %w", name, err)
	}
	result.TotalFound = len(ids)
	log.Info("found unprocessed documents", "count", len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			s.addError(&result, fmt.Sprintf("batch interrupted: %v", err))
			break
		}
		doc, err := s.mail.Fetch(ctx, id)
		if err != nil {
			log.Error("fetch failed", "message_id", id, "error", err)
			result.Errors++
			s.addError(&result, fmt.Sprintf("message %s: %v", id, err))
			continue
		}
		if !src.Claims(doc) || !src.IsConfirmation(doc) {
			log.Warn("document does not belong to source", "message_id", id, "subject", doc.Subject)
			result.Ignored++
			continue
		}
		s.tally(&result, s.process(ctx, src, doc))
	}

	s.recordRun(ctx, name, start, result)
	log.Info("batch complete",
		"total_found", result.TotalFound,
		"processed", result.Processed,
		"skipped_duplicate", result.SkippedDuplicate,
		"errors", result.Errors,
		"ignored", result.Ignored,
	)
	return result, nil
}

// RunAll runs every named source, all registered sources when names is
// empty, and folds the results. A failing source is reported in the
// error messages and the rest still run.
func (s *Service) RunAll(ctx context.Context, names []string, max int) (internal.BatchResult, error) {
	if len(names) == 0 {
		names = s.registry.Names()
	}
	total := internal.BatchResult{Source: "all", ErrorMessages: []string{}}
	failed := 0
	for _, name := range names {
		res, err := s.RunSource(ctx, name, max)
		if err != nil {
			failed++
			s.log.Error("source run failed", "source", name, "error", err)
			s.addError(&total, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		total.Add(res)
		if len(total.ErrorMessages) > s.maxErrors {
			total.ErrorMessages = total.ErrorMessages[:s.maxErrors]
		}
	}
	if failed == len(names) && failed > 0 {
		return total, fmt.Errorf("all %d sources failed", failed)
	}
	return total, nil
}

// ProcessMessage handles one document by id, classifying it against every
// source. Documents no source claims are ignored and left untagged.
func (s *Service) ProcessMessage(ctx context.Context, id string) (DocumentResult, error) {
	doc, err := s.mail.Fetch(ctx, id)
	if err != nil {
		return DocumentResult{MessageID: id}, err
	}
	src, err := s.registry.Classify(doc)
	if err != nil {
		name := ""
		if src != nil {
			name = src.Name
		}
		s.log.Info("document ignored", "message_id", id, "source", name, "reason", err)
		return DocumentResult{MessageID: id, Source: name, Outcome: OutcomeIgnored, Err: err}, nil
	}
	return s.process(ctx, src, doc), nil
}

// Parse classifies and extracts doc without touching storage or labels.
func (s *Service) Parse(doc internal.Document) (*sources.Source, internal.OrderExtract, error) {
	src, err := s.registry.Classify(doc)
	if err != nil {
		return src, internal.OrderExtract{}, err
	}
	order, err := src.Extract(doc)
	return src, order, err
}

// process extracts, writes and tags one claimed document.
func (s *Service) process(ctx context.Context, src *sources.Source, doc internal.Document) DocumentResult {
	res := DocumentResult{MessageID: doc.MessageID, Source: src.Name}
	tr := s.trackers[src.Kind]
	log := s.log.With("source", src.Name, "message_id", doc.MessageID)

	order, err := src.Extract(doc)
	res.Order = order
	if err != nil {
		log.Error("extraction failed", "error", err)
		res.Outcome, res.Err = OutcomeErrored, err
		tr.MarkErrored(ctx, doc.MessageID)
		return res
	}

	if src.Kind == internal.KindShipment {
		res.Write, err = s.writer.WriteShipment(ctx, order, doc.MessageID)
	} else {
		res.Write, err = s.writer.WritePurchase(ctx, order, src.RetailerPatterns, doc.MessageID)
	}

	switch {
	case errors.Is(err, internal.ErrDuplicateOrder), errors.Is(err, internal.ErrDuplicateItem):
		res.Outcome = OutcomeDuplicate
		tr.MarkProcessed(ctx, doc.MessageID)
	case err != nil:
		if errors.Is(err, internal.ErrPersistence) {
			log.Error("write failed", "order_number", order.OrderNumber, "error", err)
		} else {
			log.Warn("nothing recorded", "order_number", order.OrderNumber, "error", err)
		}
		res.Outcome, res.Err = OutcomeErrored, err
		tr.MarkErrored(ctx, doc.MessageID)
	default:
		res.Outcome = OutcomeProcessed
		tr.MarkProcessed(ctx, doc.MessageID)
	}
	return res
}

func (s *Service) tally(result *internal.BatchResult, doc DocumentResult) {
	result.ItemsStored += doc.Write.Stored
	result.ItemsSkipped += doc.Write.Skipped
	switch doc.Outcome {
	case OutcomeProcessed:
		result.Processed++
	case OutcomeDuplicate:
		result.SkippedDuplicate++
	case OutcomeIgnored:
		result.Ignored++
	case OutcomeErrored:
		result.Errors++
		s.addError(result, fmt.Sprintf("message %s: %v", doc.MessageID, doc.Err))
	}
}

func (s *Service) addError(result *internal.BatchResult, msg string) {
	if len(result.ErrorMessages) < s.maxErrors {
		result.ErrorMessages = append(result.ErrorMessages, msg)
	}
}

func (s *Service) recordRun(ctx context.Context, source string, start time.Time, result internal.BatchResult) {
	timings := map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}
	if err := s.db.InsertRun(ctx, uuid.NewString(), source, timings, result); err != nil {
		s.log.Warn("record run failed", "source", source, "error", err)
	}
}
