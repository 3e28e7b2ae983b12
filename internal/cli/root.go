// Package cli provides the ordermail command-line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ordermail/internal/app"
	"ordermail/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	application *app.App
	batchMax    int
)

var rootCmd = &cobra.Command{
	Use:   "ordermail",
	Short: "Turn retailer order and PrepWorx shipment emails into purchase and check-in records",
	Long: `ordermail reads order confirmation emails from sneaker retailers and
inbound-processed emails from PrepWorx, matches every item to a sourcing
lead and records purchases and check-ins exactly once.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("max") && cfg.BatchMax > 0 {
			batchMax = cfg.BatchMax
		}
		application, err = app.New(cfg)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application != nil {
			application.Close()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&batchMax, "max", "n", 50, "max documents per source")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runAllCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(leadsImportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
