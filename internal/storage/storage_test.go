package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordermail/internal"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRebind(t *testing.T) {
	q := `SELECT * FROM t WHERE a = ? AND b = ?`
	assert.Equal(t, q, rebind(SQLite, q))
	assert.Equal(t, `SELECT * FROM t WHERE a = $1 AND b = $2`, rebind(Postgres, q))
}

func TestImportLeadAndLookup(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	retailerID, err := db.UpsertRetailer(ctx, internal.Retailer{Name: "Foot Locker"})
	require.NoError(t, err)

	_, err = db.ImportLead(ctx, internal.SourcingLead{LeadID: "L-1", UniqueID: "DD1391100", ProductSKU: "DD1391-100", RetailerID: &retailerID, RSP: 140},
		[]internal.AsinBankEntry{{ASIN: "B0TEST0001", Size: "10"}, {ASIN: "B0TEST0002", Size: "10.5"}})
	require.NoError(t, err)

	// re-import keeps one row per lead and asin
	_, err = db.ImportLead(ctx, internal.SourcingLead{LeadID: "L-1", UniqueID: "DD1391100", ProductSKU: "DD1391-100", RSP: 150},
		[]internal.AsinBankEntry{{ASIN: "B0TEST0001", Size: "10"}})
	require.NoError(t, err)

	leads, err := db.FindLeadsByUniqueID(ctx, "DD1391100")
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, 150.0, leads[0].RSP)
	assert.Nil(t, leads[0].RetailerID)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	entry, err := tx.FindAsinByLeadSize(ctx, "L-1", "10.5")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "B0TEST0002", entry.ASIN)

	missing, err := tx.FindAsinByASIN(ctx, "B0NOPE0000")
	require.NoError(t, err)
	assert.Nil(t, missing)

	r, err := tx.FindRetailer(ctx, []string{"champs", "foot locker"})
	require.NoError(t, err)
	assert.Equal(t, retailerID, r.ID)

	_, err = tx.FindRetailer(ctx, []string{"hibbett"})
	assert.ErrorIs(t, err, internal.ErrRetailerNotFound)
}

func TestClaimOrderOnce(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	ok, err := tx.ClaimOrder(ctx, "P100", "footlocker", "<m1>")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, tx.Commit())

	tx, err = db.Begin(ctx)
	require.NoError(t, err)
	ok, err = tx.ClaimOrder(ctx, "P100", "footlocker", "<m2>")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, tx.Rollback())
}

func TestCheckinDedup(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	entry, err := tx.CreateAsin(ctx, internal.AsinBankEntry{LeadID: "P1", ASIN: "B0DJDXB819", Size: "6.5"})
	require.NoError(t, err)

	rec := internal.CheckinRecord{OrderNumber: "P1", ItemName: "Nike", AsinBankID: entry.ID, Quantity: 1, CheckedInAt: time.Now()}
	stored, err := tx.InsertCheckin(ctx, rec)
	require.NoError(t, err)
	assert.True(t, stored)

	exists, err := tx.CheckinExists(ctx, rec)
	require.NoError(t, err)
	assert.True(t, exists)

	stored, err = tx.InsertCheckin(ctx, rec)
	require.NoError(t, err)
	assert.False(t, stored)

	rec.Quantity = 2
	stored, err = tx.InsertCheckin(ctx, rec)
	require.NoError(t, err)
	assert.True(t, stored)
	require.NoError(t, tx.Commit())

	n, err := db.CountCheckins(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := db.CheckinExportRows(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "B0DJDXB819", rows[0].ASIN)
	assert.Equal(t, "P1", rows[0].LeadID)
}

func TestUpdateAsinSizeOnlyFillsBlank(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	entry, err := tx.CreateAsin(ctx, internal.AsinBankEntry{LeadID: "L", ASIN: "B0AAAAAAAA"})
	require.NoError(t, err)
	require.NoError(t, tx.UpdateAsinSize(ctx, entry.ID, "9"))
	require.NoError(t, tx.UpdateAsinSize(ctx, entry.ID, "11"))

	got, err := tx.FindAsinByASIN(ctx, "B0AAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "9", got.Size)
}

func TestMetadataAndRuns(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	v, err := db.GetMetadata(ctx, "leads.last_import")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, db.SetMetadata(ctx, "leads.last_import", "a"))
	require.NoError(t, db.SetMetadata(ctx, "leads.last_import", "b"))
	v, err = db.GetMetadata(ctx, "leads.last_import")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "b", *v)

	require.NoError(t, db.InsertRun(ctx, "trace-1", "footlocker", map[string]float64{"totalMs": 12}, internal.BatchResult{TotalFound: 3, Processed: 2}))
	runs, err := db.RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Counts.Processed)
}

func TestClaimOrderErrorRollsBack(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO processed_orders`).
		WithArgs("P9", "snipes", "<m>").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	db := Wrap(conn, SQLite)
	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	_, err = tx.ClaimOrder(context.Background(), "P9", "snipes", "<m>")
	require.Error(t, err)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlaceholders(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM purchase_records WHERE order_number = \$1`).
		WithArgs("P1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	exists, err := Wrap(conn, Postgres).PurchaseExists(context.Background(), "P1")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRetailersSortedByName(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	_, err := db.UpsertRetailer(ctx, internal.Retailer{Name: "Snipes"})
	require.NoError(t, err)
	_, err = db.UpsertRetailer(ctx, internal.Retailer{Name: "Champs Sports", Link: "https://www.champssports.com"})
	require.NoError(t, err)

	retailers, err := db.ListRetailers(ctx)
	require.NoError(t, err)
	require.Len(t, retailers, 2)
	assert.Equal(t, "Champs Sports", retailers[0].Name)
	assert.Equal(t, "https://www.champssports.com", retailers[0].Link)
	assert.Equal(t, "Snipes", retailers[1].Name)
	assert.Equal(t, "sqlite", db.Dialect().String())
}
