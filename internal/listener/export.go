package listener

import (
	"context"
	"time"

	"ordermail/internal/pipeline"
	"ordermail/internal/storage"
)

// exportCycle writes the purchases booked today and the check-ins stored
// since the cycle started.
func exportCycle(ctx context.Context, db *storage.DB, dir string, at time.Time) error {
	purchasesPath, checkinsPath := exportPaths(dir, at)

	purchases, err := db.PurchaseExportRows(ctx, at.Format("2006-01-02"))
	if err != nil {
		return err
	}
	if len(purchases) > 0 {
		if err := pipeline.ExportPurchasesToXLSX(purchases, purchasesPath); err != nil {
			return err
		}
	}

	checkins, err := db.CheckinExportRows(ctx, at.UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	if len(checkins) > 0 {
		return pipeline.ExportCheckinsToXLSX(checkins, checkinsPath)
	}
	return nil
}
