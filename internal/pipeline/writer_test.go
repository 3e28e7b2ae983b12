package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordermail/internal"
	"ordermail/internal/reconcile"
)

// failSecondInsert makes the second row written for an order fail.
func failSecondInsert(t *testing.T, path, table string) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_, err = conn.Exec(`CREATE TRIGGER fail_second_` + table + ` BEFORE INSERT ON ` + table + `
WHEN (SELECT COUNT(*) FROM ` + table + ` WHERE order_number = NEW.order_number) >= 1
BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END;`)
	require.NoError(t, err)
	return conn
}

func countRows(t *testing.T, conn *sql.DB, query string) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(query).Scan(&n))
	return n
}

func TestWritePurchaseInsertFailureRollsBackOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedFootlockerLeads(t)
	conn := failSecondInsert(t, f.path, "purchase_records")

	src, err := f.svc.registry.Get("footlocker")
	require.NoError(t, err)
	order, err := src.Extract(footlockerDoc())
	require.NoError(t, err)
	require.Len(t, order.Items, 2)

	_, err = f.svc.writer.WritePurchase(ctx, order, src.RetailerPatterns, "m1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, internal.ErrPersistence))

	assert.Equal(t, 0, countRows(t, conn, `SELECT COUNT(*) FROM purchase_records`))
	assert.Equal(t, 0, countRows(t, conn, `SELECT COUNT(*) FROM processed_orders`))

	f.mail.add("m1", footlockerDoc())
	res, err := f.svc.RunSource(ctx, "footlocker", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	assert.True(t, f.mail.has("m1", "Retailer-Orders/Error"))
	assert.False(t, f.mail.has("m1", "Retailer-Orders/Processed"))
	assert.Equal(t, 0, countRows(t, conn, `SELECT COUNT(*) FROM processed_orders`))
}

func TestWriteShipmentInsertFailureRollsBackShipment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	conn := failSecondInsert(t, f.path, "checkin_records")
	doc := internal.Document{
		Sender:  "PrepWorx <beta@prepworx.io>",
		Subject: "Inbound P12345 has been processed",
		HTML:    prepworxShipmentHTML,
	}

	src, err := f.svc.registry.Get("prepworx")
	require.NoError(t, err)
	shipment, err := src.Extract(doc)
	require.NoError(t, err)

	_, err = f.svc.writer.WriteShipment(ctx, shipment, "s1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, internal.ErrPersistence))
	assert.Equal(t, 0, countRows(t, conn, `SELECT COUNT(*) FROM checkin_records`))

	f.mail.add("s1", doc)
	res, err := f.svc.RunSource(ctx, "prepworx", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	assert.True(t, f.mail.has("s1", "PrepWorx/Error"))
	assert.False(t, f.mail.has("s1", "PrepWorx/Processed"))
	n, err := f.db.CountCheckins(ctx, "P12345")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWriteDuplicatesWrapSentinels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedFootlockerLeads(t)
	w := NewWriter(f.db, reconcile.NewEngine(nil), nil)

	src, err := f.svc.registry.Get("footlocker")
	require.NoError(t, err)
	order, err := src.Extract(footlockerDoc())
	require.NoError(t, err)

	res, err := w.WritePurchase(ctx, order, src.RetailerPatterns, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stored)

	res, err = w.WritePurchase(ctx, order, src.RetailerPatterns, "m2")
	assert.True(t, errors.Is(err, internal.ErrDuplicateOrder))
	assert.True(t, res.Duplicate)

	prep, err := f.svc.registry.Get("prepworx")
	require.NoError(t, err)
	shipment, err := prep.Extract(internal.Document{
		Sender:  "beta@prepworx.io",
		Subject: "Inbound P12345 has been processed",
		HTML:    prepworxShipmentHTML,
	})
	require.NoError(t, err)
	_, err = w.WriteShipment(ctx, shipment, "s1")
	require.NoError(t, err)
	res, err = w.WriteShipment(ctx, shipment, "s2")
	assert.True(t, errors.Is(err, internal.ErrDuplicateItem))
	assert.True(t, res.Duplicate)
	assert.Equal(t, 0, res.Stored)
}
