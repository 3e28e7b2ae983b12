package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"ordermail/internal"
	"ordermail/internal/reconcile"
	"ordermail/internal/storage"
)

// WriteResult counts what one document wrote. Duplicate is set when the
// whole document was already recorded; the error then wraps
// ErrDuplicateOrder or ErrDuplicateItem.
type WriteResult struct {
	Stored    int
	Skipped   int
	Duplicate bool
}

// Writer is the only component that writes orders and check-ins. Each
// document is one transaction.
type Writer struct {
	db     *storage.DB
	engine *reconcile.Engine
	log    *slog.Logger
}

func NewWriter(db *storage.DB, engine *reconcile.Engine, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{db: db, engine: engine, log: log}
}

func persistence(err error) error {
	return fmt.Errorf("%w: %w", internal.ErrPersistence, err)
}

// WritePurchase records one purchase per reconciled item. An order that
// already exists is a duplicate; an order where no item reconciles is
// rolled back and reported as ErrNothingWritten.
func (w *Writer) WritePurchase(ctx context.Context, order internal.OrderExtract, retailerPatterns []string, messageID string) (WriteResult, error) {
	log := w.log.With("source", order.Source, "order_number", order.OrderNumber, "message_id", messageID)

	exists, err := w.db.PurchaseExists(ctx, order.OrderNumber)
	if err != nil {
		return WriteResult{}, persistence(err)
	}
	if exists {
		log.Info("order already recorded")
		return WriteResult{Duplicate: true}, fmt.Errorf("order %s: %w", order.OrderNumber, internal.ErrDuplicateOrder)
	}

	tx, err := w.db.Begin(ctx)
	if err != nil {
		return WriteResult{}, persistence(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	claimed, err := tx.ClaimOrder(ctx, order.OrderNumber, order.Source, messageID)
	if err != nil {
		return WriteResult{}, persistence(err)
	}
	if !claimed {
		log.Info("order claimed by an earlier run")
		return WriteResult{Duplicate: true}, fmt.Errorf("order %s: %w", order.OrderNumber, internal.ErrDuplicateOrder)
	}

	var retailer *internal.Retailer
	if len(retailerPatterns) > 0 {
		retailer, err = tx.FindRetailer(ctx, retailerPatterns)
		if errors.Is(err, internal.ErrRetailerNotFound) {
			return WriteResult{}, fmt.Errorf("order %s: %w", order.OrderNumber, err)
		}
		if err != nil {
			return WriteResult{}, persistence(err)
		}
	}

	var res WriteResult
	for _, item := range order.Items {
		rec, err := w.engine.Purchase(ctx, tx, order, item)
		if errors.Is(err, internal.ErrNoLead) {
			log.Warn("no sourcing lead for item", "unique_id", item.MerchantItemID, "size", item.Size)
			res.Skipped++
			continue
		}
		if err != nil {
			return WriteResult{}, persistence(err)
		}
		if retailer != nil {
			rec.RetailerID = retailer.ID
		}
		rec.MessageID = messageID
		if _, err := tx.InsertPurchase(ctx, rec); err != nil {
			return WriteResult{}, persistence(fmt.Errorf("insert purchase %s: %w", rec.FBAMSKU, err))
		}
		res.Stored++
	}

	if res.Stored == 0 {
		return res, fmt.Errorf("order %s: %w", order.OrderNumber, internal.ErrNothingWritten)
	}
	if err := tx.Commit(); err != nil {
		return WriteResult{}, persistence(err)
	}
	committed = true
	log.Info("order recorded", "stored", res.Stored, "skipped", res.Skipped)
	return res, nil
}

// WriteShipment records check-ins item by item. Items already recorded,
// in this shipment or an earlier one, are skipped. A shipment where every
// item was skipped is a duplicate.
func (w *Writer) WriteShipment(ctx context.Context, shipment internal.OrderExtract, messageID string) (WriteResult, error) {
	log := w.log.With("source", shipment.Source, "order_number", shipment.OrderNumber, "message_id", messageID)

	tx, err := w.db.Begin(ctx)
	if err != nil {
		return WriteResult{}, persistence(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var res WriteResult
	seen := map[string]bool{}
	for _, item := range shipment.Items {
		rec, err := w.engine.Checkin(ctx, tx, shipment, item)
		if err != nil {
			return WriteResult{}, persistence(err)
		}
		rec.MessageID = messageID

		key := checkinKey(rec)
		if seen[key] {
			log.Debug("item repeated in shipment", "asin", rec.ASIN, "qty", rec.Quantity)
			res.Skipped++
			continue
		}
		seen[key] = true

		exists, err := tx.CheckinExists(ctx, rec)
		if err != nil {
			return WriteResult{}, persistence(err)
		}
		if exists {
			res.Skipped++
			continue
		}
		stored, err := tx.InsertCheckin(ctx, rec)
		if err != nil {
			return WriteResult{}, persistence(fmt.Errorf("insert checkin %s: %w", rec.ASIN, err))
		}
		if !stored {
			res.Skipped++
			continue
		}
		res.Stored++
	}

	if err := tx.Commit(); err != nil {
		return WriteResult{}, persistence(err)
	}
	committed = true

	log.Info("shipment recorded", "stored", res.Stored, "skipped", res.Skipped)
	if res.Stored == 0 && res.Skipped > 0 {
		res.Duplicate = true
		return res, fmt.Errorf("shipment %s: %w", shipment.OrderNumber, internal.ErrDuplicateItem)
	}
	return res, nil
}

func checkinKey(r internal.CheckinRecord) string {
	return r.OrderNumber + "\x00" + strconv.FormatInt(r.AsinBankID, 10) + "\x00" + r.ItemName + "\x00" + strconv.Itoa(r.Quantity)
}
