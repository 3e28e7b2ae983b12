package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"ordermail/internal/connectors"
	"ordermail/internal/pipeline"
)

var (
	runAllSources []string
	listenExport  bool
)

var runCmd = &cobra.Command{
	Use:   "run <source>",
	Short: "Process unprocessed documents for one source",
	Example: `  ordermail run footlocker
  ordermail run prepworx --max 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		svc, err := application.Service(ctx)
		if err != nil {
			return err
		}
		res, err := svc.RunSource(ctx, args[0], batchMax)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var runAllCmd = &cobra.Command{
	Use:   "run-all",
	Short: "Process every source, or the ones named with --sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		svc, err := application.Service(ctx)
		if err != nil {
			return err
		}
		res, err := svc.RunAll(ctx, runAllSources, batchMax)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var processCmd = &cobra.Command{
	Use:   "process <message-id>",
	Short: "Classify and process a single message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		svc, err := application.Service(ctx)
		if err != nil {
			return err
		}
		res, err := svc.ProcessMessage(ctx, args[0])
		if err != nil {
			return err
		}
		out := map[string]any{
			"messageId":    res.MessageID,
			"source":       res.Source,
			"outcome":      res.Outcome,
			"orderNumber":  res.Order.OrderNumber,
			"itemsStored":  res.Write.Stored,
			"itemsSkipped": res.Write.Skipped,
		}
		if res.Err != nil {
			out["error"] = res.Err.Error()
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <file.eml>",
	Short: "Extract an order from a raw message file without writing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc, err := connectors.ParseDocument(filepath.Base(args[0]), raw)
		if err != nil {
			return err
		}
		svc := pipeline.NewService(application.DB, nil, application.Registry, application.Cfg, application.Log)
		src, order, err := svc.Parse(doc)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"source": src.Name,
			"kind":   src.Kind,
			"order":  order,
		})
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run the configured sources on an interval until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		exportDir := ""
		if listenExport {
			exportDir = filepath.Join(application.Cfg.OutputDir, "listener")
		}
		svc, err := application.Listener(ctx, exportDir)
		if err != nil {
			return err
		}
		return svc.Run(ctx)
	},
}

func init() {
	runAllCmd.Flags().StringSliceVar(&runAllSources, "sources", nil, "sources to run (default all)")
	listenCmd.Flags().BoolVar(&listenExport, "export", false, "write workbooks after cycles that stored records")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
