package storage

import (
	"context"

	"ordermail/internal"
)

// PurchaseExportRows joins purchase records with their lead, retailer and
// ASIN entry. An empty since returns every row.
func (d *DB) PurchaseExportRows(ctx context.Context, since string) ([]internal.PurchaseExportRow, error) {
	rows, err := d.conn.QueryContext(ctx, d.q(`
SELECT p.purchased_on, COALESCE(r.name, ''), p.order_number, p.lead_id, l.product_name, l.unique_id,
       p.size, COALESCE(a.asin, ''), p.final_qty, p.rsp, p.fba_msku, p.status
FROM purchase_records p
JOIN sourcing_leads l ON l.id = p.sourcing_lead_id
LEFT JOIN retailers r ON r.id = p.retailer_id
LEFT JOIN asin_bank a ON a.id = p.asin_bank_id
WHERE p.purchased_on >= ?
ORDER BY p.id`), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.PurchaseExportRow
	for rows.Next() {
		var r internal.PurchaseExportRow
		if err := rows.Scan(&r.PurchasedOn, &r.Retailer, &r.OrderNumber, &r.LeadID, &r.ProductName, &r.UniqueID,
			&r.Size, &r.ASIN, &r.Qty, &r.RSP, &r.FBAMSKU, &r.Status); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) CheckinExportRows(ctx context.Context, since string) ([]internal.CheckinExportRow, error) {
	rows, err := d.conn.QueryContext(ctx, d.q(`
SELECT c.checked_in_at, c.order_number, c.item_name, a.asin, a.size, a.lead_id, c.quantity
FROM checkin_records c
JOIN asin_bank a ON a.id = c.asin_bank_id
WHERE c.checked_in_at >= ?
ORDER BY c.id`), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CheckinExportRow
	for rows.Next() {
		var r internal.CheckinExportRow
		if err := rows.Scan(&r.CheckedInAt, &r.OrderNumber, &r.ItemName, &r.ASIN, &r.Size, &r.LeadID, &r.Quantity); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
