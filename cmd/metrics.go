package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/analysis-core/internal/monitoring"
)

var metricsWatch bool

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Collect a health snapshot from the history store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initHistory(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		collector := monitoring.NewCollector(st)

		if metricsWatch {
			// Blocks until interrupted; alerts go to the configured webhook.
			alerter := monitoring.NewAlerter(cfg.Monitoring)
			checker := monitoring.NewChecker(collector, alerter, cfg.Monitoring)
			checker.Run(ctx)
			return nil
		}

		snap, err := collector.Collect(ctx, cfg.Monitoring.LookbackLimit)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsWatch, "watch", false, "run the periodic alert checker until interrupted")
	rootCmd.AddCommand(metricsCmd)
}
