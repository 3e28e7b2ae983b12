package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// Open connects to Postgres when dsn is a postgres URL and to a SQLite
// file otherwise, then creates the schema.
func Open(dsn string) (*DB, error) {
	var (
		conn    *sql.DB
		dialect Dialect
		err     error
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialect = Postgres
		conn, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, err
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, err
		}
		conn, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		// one writer; concurrent batches serialize on the file lock
		conn.SetMaxOpenConns(1)
		if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
			_ = conn.Close()
			return nil, err
		}
		if _, err := conn.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	db := &DB{conn: conn, dialect: dialect}
	if err := db.Init(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// Wrap uses an existing connection without touching the schema.
func Wrap(conn *sql.DB, dialect Dialect) *DB {
	return &DB{conn: conn, dialect: dialect}
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Dialect() Dialect {
	return d.dialect
}

const schema = `
CREATE TABLE IF NOT EXISTS retailers (
  id {{pk}},
  name TEXT NOT NULL UNIQUE,
  link TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sourcing_leads (
  id {{pk}},
  lead_id TEXT NOT NULL UNIQUE,
  unique_id TEXT NOT NULL,
  product_sku TEXT NOT NULL DEFAULT '',
  product_name TEXT NOT NULL DEFAULT '',
  retailer_id BIGINT REFERENCES retailers(id),
  ppu REAL NOT NULL DEFAULT 0,
  rsp REAL NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_sourcing_leads_unique_id ON sourcing_leads(unique_id);

CREATE TABLE IF NOT EXISTS asin_bank (
  id {{pk}},
  lead_id TEXT NOT NULL,
  asin TEXT NOT NULL,
  size TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(lead_id, asin)
);
CREATE INDEX IF NOT EXISTS idx_asin_bank_asin ON asin_bank(asin);

CREATE TABLE IF NOT EXISTS processed_orders (
  order_number TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  message_id TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS purchase_records (
  id {{pk}},
  sourcing_lead_id BIGINT NOT NULL REFERENCES sourcing_leads(id),
  asin_bank_id BIGINT REFERENCES asin_bank(id),
  lead_id TEXT NOT NULL,
  retailer_id BIGINT REFERENCES retailers(id),
  order_number TEXT NOT NULL REFERENCES processed_orders(order_number),
  platform TEXT NOT NULL,
  purchased_on TEXT NOT NULL,
  og_qty INTEGER NOT NULL,
  final_qty INTEGER NOT NULL,
  rsp REAL NOT NULL DEFAULT 0,
  fba_msku TEXT NOT NULL,
  status TEXT NOT NULL,
  size TEXT NOT NULL DEFAULT '',
  audited INTEGER NOT NULL DEFAULT 0,
  source TEXT NOT NULL,
  message_id TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_purchase_records_order ON purchase_records(order_number);

CREATE TABLE IF NOT EXISTS checkin_records (
  id {{pk}},
  order_number TEXT NOT NULL,
  item_name TEXT NOT NULL,
  asin_bank_id BIGINT NOT NULL REFERENCES asin_bank(id),
  quantity INTEGER NOT NULL,
  checked_in_at TEXT NOT NULL,
  message_id TEXT NOT NULL DEFAULT '',
  UNIQUE(order_number, asin_bank_id, item_name, quantity)
);

CREATE TABLE IF NOT EXISTS runs (
  id {{pk}},
  trace_id TEXT NOT NULL,
  source TEXT NOT NULL,
  timings_json TEXT NOT NULL,
  counts_json TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func (d *DB) Init(ctx context.Context) error {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d.dialect == Postgres {
		pk = "BIGSERIAL PRIMARY KEY"
	}
	_, err := d.conn.ExecContext(ctx, strings.ReplaceAll(schema, "{{pk}}", pk))
	return err
}

// rebind rewrites ? placeholders to $n for Postgres.
func rebind(dialect Dialect, query string) string {
	if dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *DB) q(query string) string {
	return rebind(d.dialect, query)
}

// Begin opens the unit of work for one order or shipment.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Tx{tx: tx, dialect: d.dialect}, nil
}

type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) q(query string) string {
	return rebind(t.dialect, query)
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}
