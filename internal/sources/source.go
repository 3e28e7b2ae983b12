package sources

import (
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"

	"ordermail/internal"
	"ordermail/internal/util"
)

// Strategy is what the pipeline needs from a source.
type Strategy interface {
	Claims(doc internal.Document) bool
	IsConfirmation(doc internal.Document) bool
	Extract(doc internal.Document) (internal.OrderExtract, error)
}

// Candidate is a raw item as located in the markup, before validation.
type Candidate struct {
	ID   string
	Name string
	Size string
	Qty  string
}

type ItemLocator func(p *Page, src *Source) []Candidate

// Source is the rule table for one sender.
type Source struct {
	Name           string
	Kind           internal.SourceKind
	Senders        []string
	SenderPatterns []string
	Subject        *regexp.Regexp
	Query          internal.SearchQuery
	IDRules        []IDRule
	Locate         ItemLocator
	Sizes          util.SizeRange
	QtyMax         int
	// QtyDefault turns a missing quantity into 1 instead of dropping the item.
	QtyDefault  bool
	Window      int
	DedupeItems bool
	// RetailerPatterns are case-insensitive retailer names this source books under.
	RetailerPatterns []string
	// Enrich adds source-specific order fields after items are located.
	Enrich func(p *Page, order *internal.OrderExtract)

	Log *slog.Logger
}

func (s *Source) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// Claims reports sender identity: an exact address or a substring pattern.
func (s *Source) Claims(doc internal.Document) bool {
	from := strings.ToLower(strings.TrimSpace(doc.Sender))
	if from == "" {
		return false
	}
	addr := from
	if parsed, err := mail.ParseAddress(doc.Sender); err == nil {
		addr = strings.ToLower(parsed.Address)
	}
	for _, sender := range s.Senders {
		if strings.EqualFold(addr, sender) {
			return true
		}
	}
	for _, pattern := range s.SenderPatterns {
		if util.ContainsFold(from, pattern) {
			return true
		}
	}
	return false
}

// IsConfirmation reports subject intent.
func (s *Source) IsConfirmation(doc internal.Document) bool {
	return s.Subject != nil && s.Subject.MatchString(doc.Subject)
}

func (s *Source) Extract(doc internal.Document) (internal.OrderExtract, error) {
	order := internal.OrderExtract{Source: s.Name, Kind: s.Kind}
	page, err := NewPage(doc)
	if err != nil {
		return order, fmt.Errorf("%s: parse body: %w", s.Name, err)
	}

	order.OrderNumber = firstID(page, s.IDRules)
	if order.OrderNumber == "" {
		return order, fmt.Errorf("%s: %w", s.Name, internal.ErrIdentifierNotFound)
	}

	var candidates []Candidate
	if s.Locate != nil {
		candidates = s.Locate(page, s)
	}
	order.Items = s.accept(candidates, order.OrderNumber)
	if s.Enrich != nil {
		s.Enrich(page, &order)
	}
	if len(order.Items) == 0 {
		return order, fmt.Errorf("%s order %s: %w", s.Name, order.OrderNumber, internal.ErrNoItems)
	}
	return order, nil
}

func (s *Source) accept(candidates []Candidate, orderNumber string) []internal.ItemExtract {
	log := s.logger().With("source", s.Name, "order_number", orderNumber)
	seen := map[string]bool{}
	out := make([]internal.ItemExtract, 0, len(candidates))
	for _, c := range candidates {
		item, reason := s.validate(c)
		if reason != "" {
			log.Warn("dropping item", "unique_id", c.ID, "size", c.Size, "qty", c.Qty, "reason", reason)
			continue
		}
		if s.DedupeItems {
			key := item.MerchantItemID + "_" + item.Size
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, item)
	}
	return out
}

func (s *Source) validate(c Candidate) (internal.ItemExtract, string) {
	item := internal.ItemExtract{
		MerchantItemID: strings.TrimSpace(c.ID),
		DisplayName:    util.CleanText(c.Name),
	}
	if item.MerchantItemID == "" {
		return item, "missing item id"
	}

	if s.Kind == internal.KindShipment {
		item.Quantity = 1
		if strings.TrimSpace(c.Qty) != "" {
			qty, ok := util.ParseQuantity(c.Qty)
			if !ok {
				return item, "unparseable quantity"
			}
			item.Quantity = qty
		}
		item.Size = util.NormalizeSize(c.Size)
		return item, ""
	}

	if !s.Sizes.Accepts(c.Size) {
		return item, "implausible size"
	}
	item.Size = util.NormalizeSize(c.Size)

	switch {
	case strings.TrimSpace(c.Qty) == "" && s.QtyDefault:
		item.Quantity = 1
	case util.PlausibleQuantity(c.Qty, s.QtyMax):
		item.Quantity, _ = util.ParseQuantity(c.Qty)
	default:
		return item, "implausible quantity"
	}
	return item, ""
}
