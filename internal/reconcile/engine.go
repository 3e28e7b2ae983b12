package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ordermail/internal"
	"ordermail/internal/util"
)

// Catalog is the read/write view of leads and the ASIN bank that
// reconciliation needs. storage.Tx implements it.
type Catalog interface {
	FindLeadsByUniqueID(ctx context.Context, uniqueID string) ([]internal.SourcingLead, error)
	FindAsinByLeadSize(ctx context.Context, leadID, size string) (*internal.AsinBankEntry, error)
	FindAsinByASIN(ctx context.Context, asin string) (*internal.AsinBankEntry, error)
	CreateAsin(ctx context.Context, entry internal.AsinBankEntry) (internal.AsinBankEntry, error)
	UpdateAsinSize(ctx context.Context, id int64, size string) error
}

type Engine struct {
	log *slog.Logger
	now func() time.Time
}

func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log, now: time.Now}
}

// FBAMSKU derives the fulfillment SKU label "{size}-{sku}-{order}".
func FBAMSKU(size, productSKU, orderNumber string) string {
	sku := strings.TrimSpace(productSKU)
	if sku == "" {
		sku = internal.UnknownSKU
	}
	return fmt.Sprintf("%s-%s-%s", size, sku, orderNumber)
}

// Purchase matches one order item to its sourcing lead and drafts the
// purchase record. A missing lead is ErrNoLead; a missing ASIN entry is
// logged and the draft carries a nil reference.
func (e *Engine) Purchase(ctx context.Context, cat Catalog, order internal.OrderExtract, item internal.ItemExtract) (internal.PurchaseRecord, error) {
	log := e.log.With("source", order.Source, "order_number", order.OrderNumber, "unique_id", item.MerchantItemID)

	lead, err := e.lead(ctx, cat, log, item.MerchantItemID, "")
	if err != nil {
		return internal.PurchaseRecord{}, err
	}

	size := util.NormalizeSize(item.Size)
	asin, err := cat.FindAsinByLeadSize(ctx, lead.LeadID, size)
	if err != nil {
		return internal.PurchaseRecord{}, fmt.Errorf("find asin for lead %s size %s: %w", lead.LeadID, size, err)
	}
	var asinID *int64
	if asin != nil {
		asinID = &asin.ID
	} else {
		log.Warn("no asin bank entry for lead size", "lead_id", lead.LeadID, "size", size)
	}

	rec := internal.PurchaseRecord{
		SourcingLeadID: lead.ID,
		AsinBankID:     asinID,
		LeadID:         lead.LeadID,
		OrderNumber:    order.OrderNumber,
		Platform:       internal.PlatformAmazon,
		PurchasedOn:    e.now().Format("2006-01-02"),
		OGQty:          item.Quantity,
		FinalQty:       item.Quantity,
		RSP:            lead.RSP,
		FBAMSKU:        FBAMSKU(size, lead.ProductSKU, order.OrderNumber),
		Status:         internal.StatusOrdered,
		Size:           size,
		Source:         order.Source,
	}
	if lead.RetailerID != nil {
		rec.RetailerID = *lead.RetailerID
	}
	return rec, nil
}

// Checkin resolves the ASIN bank entry for a shipment item, creating it
// from the shipment when unknown and backfilling a missing size.
func (e *Engine) Checkin(ctx context.Context, cat Catalog, shipment internal.OrderExtract, item internal.ItemExtract) (internal.CheckinRecord, error) {
	log := e.log.With("source", shipment.Source, "order_number", shipment.OrderNumber, "asin", item.MerchantItemID)
	size := util.NormalizeSize(item.Size)

	entry, err := cat.FindAsinByASIN(ctx, item.MerchantItemID)
	if err != nil {
		return internal.CheckinRecord{}, fmt.Errorf("find asin %s: %w", item.MerchantItemID, err)
	}

	switch {
	case entry == nil:
		leadID := util.FirstNonEmpty(shipment.OrderNumber, internal.DefaultLeadID)
		if lead, err := e.lead(ctx, cat, log, item.MerchantItemID, size); err == nil {
			leadID = lead.LeadID
		}
		created, err := cat.CreateAsin(ctx, internal.AsinBankEntry{LeadID: leadID, ASIN: item.MerchantItemID, Size: size})
		if err != nil {
			return internal.CheckinRecord{}, fmt.Errorf("create asin %s: %w", item.MerchantItemID, err)
		}
		log.Info("created asin bank entry", "lead_id", leadID, "size", size)
		entry = &created
	case entry.Size == "" && size != "":
		if err := cat.UpdateAsinSize(ctx, entry.ID, size); err != nil {
			return internal.CheckinRecord{}, fmt.Errorf("backfill size for asin %s: %w", item.MerchantItemID, err)
		}
		entry.Size = size
	}

	return internal.CheckinRecord{
		OrderNumber: shipment.OrderNumber,
		ItemName:    item.DisplayName,
		AsinBankID:  entry.ID,
		ASIN:        entry.ASIN,
		Size:        util.FirstNonEmpty(size, entry.Size),
		Quantity:    item.Quantity,
		CheckedInAt: e.now().UTC(),
	}, nil
}

// lead picks the first lead for uniqueID, optionally restricted to a
// normalized size match on the lead's ASIN bank.
func (e *Engine) lead(ctx context.Context, cat Catalog, log *slog.Logger, uniqueID, size string) (internal.SourcingLead, error) {
	leads, err := cat.FindLeadsByUniqueID(ctx, uniqueID)
	if err != nil {
		return internal.SourcingLead{}, fmt.Errorf("find lead %s: %w", uniqueID, err)
	}
	if size != "" {
		matched := leads[:0:0]
		for _, l := range leads {
			entry, err := cat.FindAsinByLeadSize(ctx, l.LeadID, size)
			if err != nil {
				return internal.SourcingLead{}, fmt.Errorf("find asin for lead %s: %w", l.LeadID, err)
			}
			if entry != nil {
				matched = append(matched, l)
			}
		}
		leads = matched
	}
	if len(leads) == 0 {
		return internal.SourcingLead{}, fmt.Errorf("unique id %s: %w", uniqueID, internal.ErrNoLead)
	}
	if len(leads) > 1 {
		log.Warn("multiple leads share unique id, using lowest id", "count", len(leads), "lead_id", leads[0].LeadID)
	}
	return leads[0], nil
}
