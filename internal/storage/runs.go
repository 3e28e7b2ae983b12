package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"ordermail/internal"
)

func (d *DB) InsertRun(ctx context.Context, traceID, source string, timings map[string]float64, counts internal.BatchResult) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.ExecContext(ctx, d.q(`INSERT INTO runs (trace_id, source, timings_json, counts_json) VALUES (?, ?, ?, ?)`),
		traceID, source, string(timingsJSON), string(countsJSON))
	return err
}

type RunRow struct {
	TraceID   string
	Source    string
	Counts    internal.BatchResult
	CreatedAt string
}

func (d *DB) RecentRuns(ctx context.Context, limit int) ([]RunRow, error) {
	rows, err := d.conn.QueryContext(ctx, d.q(`SELECT trace_id, source, counts_json, created_at FROM runs ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var (
			r      RunRow
			counts string
		)
		if err := rows.Scan(&r.TraceID, &r.Source, &counts, &r.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(counts), &r.Counts)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := d.conn.ExecContext(ctx, d.q(`
INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		key, value, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (d *DB) GetMetadata(ctx context.Context, key string) (*string, error) {
	var value string
	err := d.conn.QueryRowContext(ctx, d.q(`SELECT value FROM metadata WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
