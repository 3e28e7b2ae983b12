package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ordermail/internal"
	"ordermail/internal/catalog"
	"ordermail/internal/pipeline"
	"ordermail/internal/util"
)

var (
	exportKind  string
	exportSince string
	exportOut   string
)

var leadsImportCmd = &cobra.Command{
	Use:   "leads:import <file.xlsx>",
	Short: "Import sourcing leads and their ASIN bank from a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := catalog.NewImportService(application.DB, application.Log)
		res, err := svc.ImportFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d leads, %d ASINs, %d retailers (%d rows skipped)\n",
			res.Leads, res.Asins, res.Retailers, res.Skipped)
		for id, n := range res.DuplicateUniqueIDs {
			fmt.Fprintf(cmd.OutOrStdout(), "  warning: unique id %s is shared by %d leads\n", id, n)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export:xlsx",
	Short: "Write purchases or check-ins to a workbook",
	Example: `  ordermail export:xlsx --kind purchases --since 2026-01-01
  ordermail export:xlsx --kind checkins --out checkins.xlsx`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := exportOut
		if out == "" {
			out = filepath.Join(application.Cfg.OutputDir,
				fmt.Sprintf("%s_%s.xlsx", exportKind, time.Now().UTC().Format("20060102T150405Z")))
		}

		var n int
		switch strings.ToLower(exportKind) {
		case "purchases":
			rows, err := application.DB.PurchaseExportRows(ctx, exportSince)
			if err != nil {
				return err
			}
			if err := pipeline.ExportPurchasesToXLSX(rows, out); err != nil {
				return err
			}
			n = len(rows)
		case "checkins":
			rows, err := application.DB.CheckinExportRows(ctx, exportSince)
			if err != nil {
				return err
			}
			if err := pipeline.ExportCheckinsToXLSX(rows, out); err != nil {
				return err
			}
			n = len(rows)
		default:
			return fmt.Errorf("unknown export kind %q (want purchases or checkins)", exportKind)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", n, out)
		return nil
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the registered sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		retailers, err := application.DB.ListRetailers(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, src := range application.Registry.All() {
			retailer := "-"
			if len(src.RetailerPatterns) > 0 {
				retailer = "MISSING"
				if r := matchRetailer(retailers, src.RetailerPatterns); r != "" {
					retailer = r
				}
			}
			fmt.Fprintf(w, "%-14s %-9s %-20s %s\n", src.Name, src.Kind, retailer, strings.Join(src.Senders, ", "))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportKind, "kind", "purchases", "purchases or checkins")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "only rows on or after this date (YYYY-MM-DD)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default under OUTPUT_DIR)")
}

// matchRetailer returns the first retailer name containing one of the
// patterns, ignoring case.
func matchRetailer(retailers []internal.Retailer, patterns []string) string {
	for _, p := range patterns {
		for _, r := range retailers {
			if util.ContainsFold(r.Name, p) {
				return r.Name
			}
		}
	}
	return ""
}
