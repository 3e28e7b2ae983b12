package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ordermail/internal"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const leadColumns = `id, lead_id, unique_id, product_sku, product_name, retailer_id, ppu, rsp`

func findLeads(ctx context.Context, db querier, dialect Dialect, uniqueID string) ([]internal.SourcingLead, error) {
	rows, err := db.QueryContext(ctx, rebind(dialect, `SELECT `+leadColumns+` FROM sourcing_leads WHERE unique_id = ? ORDER BY id`), uniqueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SourcingLead
	for rows.Next() {
		var (
			l          internal.SourcingLead
			retailerID sql.NullInt64
		)
		if err := rows.Scan(&l.ID, &l.LeadID, &l.UniqueID, &l.ProductSKU, &l.ProductName, &retailerID, &l.PPU, &l.RSP); err != nil {
			return nil, err
		}
		if retailerID.Valid {
			id := retailerID.Int64
			l.RetailerID = &id
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanAsin(row *sql.Row) (*internal.AsinBankEntry, error) {
	var e internal.AsinBankEntry
	err := row.Scan(&e.ID, &e.LeadID, &e.ASIN, &e.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (t *Tx) FindLeadsByUniqueID(ctx context.Context, uniqueID string) ([]internal.SourcingLead, error) {
	return findLeads(ctx, t.tx, t.dialect, uniqueID)
}

func (t *Tx) FindAsinByLeadSize(ctx context.Context, leadID, size string) (*internal.AsinBankEntry, error) {
	return scanAsin(t.tx.QueryRowContext(ctx, t.q(`SELECT id, lead_id, asin, size FROM asin_bank WHERE lead_id = ? AND size = ? ORDER BY id LIMIT 1`), leadID, size))
}

func (t *Tx) FindAsinByASIN(ctx context.Context, asin string) (*internal.AsinBankEntry, error) {
	return scanAsin(t.tx.QueryRowContext(ctx, t.q(`SELECT id, lead_id, asin, size FROM asin_bank WHERE asin = ? ORDER BY id LIMIT 1`), asin))
}

func (t *Tx) CreateAsin(ctx context.Context, entry internal.AsinBankEntry) (internal.AsinBankEntry, error) {
	id, err := upsertAsin(ctx, t.tx, t.dialect, entry)
	if err != nil {
		return entry, err
	}
	entry.ID = id
	return entry, nil
}

func (t *Tx) UpdateAsinSize(ctx context.Context, id int64, size string) error {
	_, err := t.tx.ExecContext(ctx, t.q(`UPDATE asin_bank SET size = ? WHERE id = ? AND size = ''`), size, id)
	return err
}

// FindRetailer returns the first retailer whose name contains any of the
// patterns, case-insensitively.
func (t *Tx) FindRetailer(ctx context.Context, patterns []string) (*internal.Retailer, error) {
	for _, p := range patterns {
		var r internal.Retailer
		err := t.tx.QueryRowContext(ctx, t.q(`SELECT id, name, link, location FROM retailers WHERE LOWER(name) LIKE ? ORDER BY id LIMIT 1`),
			"%"+strings.ToLower(p)+"%").Scan(&r.ID, &r.Name, &r.Link, &r.Location)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &r, nil
	}
	return nil, fmt.Errorf("patterns %v: %w", patterns, internal.ErrRetailerNotFound)
}

// upsertAsin returns the id of the (lead_id, asin) entry, inserting it
// when missing. An existing entry with an empty size takes the new size.
func upsertAsin(ctx context.Context, db querier, dialect Dialect, e internal.AsinBankEntry) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, rebind(dialect, `
INSERT INTO asin_bank (lead_id, asin, size) VALUES (?, ?, ?)
ON CONFLICT(lead_id, asin) DO UPDATE SET size = CASE WHEN asin_bank.size = '' THEN excluded.size ELSE asin_bank.size END
RETURNING id`), e.LeadID, e.ASIN, e.Size).Scan(&id)
	return id, err
}

func (d *DB) UpsertRetailer(ctx context.Context, r internal.Retailer) (int64, error) {
	var id int64
	err := d.conn.QueryRowContext(ctx, d.q(`
INSERT INTO retailers (name, link, location) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET link = excluded.link, location = excluded.location
RETURNING id`), r.Name, r.Link, r.Location).Scan(&id)
	return id, err
}

func (d *DB) ListRetailers(ctx context.Context) ([]internal.Retailer, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT id, name, link, location FROM retailers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []internal.Retailer
	for rows.Next() {
		var r internal.Retailer
		if err := rows.Scan(&r.ID, &r.Name, &r.Link, &r.Location); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ImportLead upserts a lead and its ASIN bank entries in one transaction.
func (d *DB) ImportLead(ctx context.Context, lead internal.SourcingLead, asins []internal.AsinBankEntry) (int64, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, d.q(`
INSERT INTO sourcing_leads (lead_id, unique_id, product_sku, product_name, retailer_id, ppu, rsp)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(lead_id) DO UPDATE SET
  unique_id = excluded.unique_id,
  product_sku = excluded.product_sku,
  product_name = excluded.product_name,
  retailer_id = excluded.retailer_id,
  ppu = excluded.ppu,
  rsp = excluded.rsp
RETURNING id`), lead.LeadID, lead.UniqueID, lead.ProductSKU, lead.ProductName, nullInt(lead.RetailerID), lead.PPU, lead.RSP).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert lead %s: %w", lead.LeadID, err)
	}

	for _, a := range asins {
		a.LeadID = lead.LeadID
		if _, err := upsertAsin(ctx, tx, d.dialect, a); err != nil {
			return 0, fmt.Errorf("upsert asin %s for lead %s: %w", a.ASIN, lead.LeadID, err)
		}
	}
	return id, tx.Commit()
}

func (d *DB) FindLeadsByUniqueID(ctx context.Context, uniqueID string) ([]internal.SourcingLead, error) {
	return findLeads(ctx, d.conn, d.dialect, uniqueID)
}

// DuplicateUniqueIDs lists unique ids shared by more than one lead.
func (d *DB) DuplicateUniqueIDs(ctx context.Context) (map[string]int, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT unique_id, COUNT(*) FROM sourcing_leads GROUP BY unique_id HAVING COUNT(*) > 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
