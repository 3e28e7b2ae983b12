package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ordermail/internal"
)

// PurchaseExists is the fast-path duplicate check for an order.
func (d *DB) PurchaseExists(ctx context.Context, orderNumber string) (bool, error) {
	var n int
	err := d.conn.QueryRowContext(ctx, d.q(`SELECT COUNT(*) FROM purchase_records WHERE order_number = ?`), orderNumber).Scan(&n)
	return n > 0, err
}

// ClaimOrder records the order as processed. It reports false when the
// order was already claimed, which is the authoritative duplicate signal.
func (t *Tx) ClaimOrder(ctx context.Context, orderNumber, source, messageID string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, t.q(`
INSERT INTO processed_orders (order_number, source, message_id) VALUES (?, ?, ?)
ON CONFLICT(order_number) DO NOTHING`), orderNumber, source, messageID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *Tx) InsertPurchase(ctx context.Context, r internal.PurchaseRecord) (int64, error) {
	var retailerID any
	if r.RetailerID != 0 {
		retailerID = r.RetailerID
	}
	var id int64
	err := t.tx.QueryRowContext(ctx, t.q(`
INSERT INTO purchase_records (
  sourcing_lead_id, asin_bank_id, lead_id, retailer_id, order_number, platform, purchased_on,
  og_qty, final_qty, rsp, fba_msku, status, size, source, message_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`),
		r.SourcingLeadID, nullInt(r.AsinBankID), r.LeadID, retailerID, r.OrderNumber, r.Platform, r.PurchasedOn,
		r.OGQty, r.FinalQty, r.RSP, r.FBAMSKU, r.Status, r.Size, r.Source, r.MessageID,
	).Scan(&id)
	return id, err
}

func (t *Tx) CheckinExists(ctx context.Context, r internal.CheckinRecord) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, t.q(`
SELECT COUNT(*) FROM checkin_records
WHERE order_number = ? AND asin_bank_id = ? AND item_name = ? AND quantity = ?`),
		r.OrderNumber, r.AsinBankID, r.ItemName, r.Quantity).Scan(&n)
	return n > 0, err
}

// InsertCheckin stores the record unless its dedup key exists. It
// reports false on conflict.
func (t *Tx) InsertCheckin(ctx context.Context, r internal.CheckinRecord) (bool, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, t.q(`
INSERT INTO checkin_records (order_number, item_name, asin_bank_id, quantity, checked_in_at, message_id)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(order_number, asin_bank_id, item_name, quantity) DO NOTHING
RETURNING id`),
		r.OrderNumber, r.ItemName, r.AsinBankID, r.Quantity, r.CheckedInAt.UTC().Format(time.RFC3339), r.MessageID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (d *DB) CountPurchases(ctx context.Context, orderNumber string) (int, error) {
	var n int
	err := d.conn.QueryRowContext(ctx, d.q(`SELECT COUNT(*) FROM purchase_records WHERE order_number = ?`), orderNumber).Scan(&n)
	return n, err
}

func (d *DB) CountCheckins(ctx context.Context, orderNumber string) (int, error) {
	var n int
	err := d.conn.QueryRowContext(ctx, d.q(`SELECT COUNT(*) FROM checkin_records WHERE order_number = ?`), orderNumber).Scan(&n)
	return n, err
}
