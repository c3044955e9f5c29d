package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/analysis-core/internal/model"
)

var (
	batchFile        string
	batchLimit       int
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run analyses for every request in a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		data, err := os.ReadFile(batchFile)
		if err != nil {
			return eris.Wrap(err, "read batch file")
		}
		var requests []model.AnalysisRequest
		if err := json.Unmarshal(data, &requests); err != nil {
			return eris.Wrap(err, "parse batch file")
		}
		if batchLimit > 0 && len(requests) > batchLimit {
			requests = requests[:batchLimit]
		}

		zap.L().Info("batch started",
			zap.Int("requests", len(requests)),
			zap.Int("concurrency", batchConcurrency),
		)

		var succeeded, degraded, failed atomic.Int64
		results := make([]*model.AnalysisResult, len(requests))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(batchConcurrency)
		for i, req := range requests {
			g.Go(func() error {
				result := env.Orchestrator.Orchestrate(gctx, req, defaultFactory, nil)
				results[i] = result
				switch result.Status {
				case model.OutcomeSucceeded:
					succeeded.Add(1)
				case model.OutcomeDegraded:
					degraded.Add(1)
				default:
					failed.Add(1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "batch run")
		}

		zap.L().Info("batch complete",
			zap.Int64("succeeded", succeeded.Load()),
			zap.Int64("degraded", degraded.Load()),
			zap.Int64("failed", failed.Load()),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "JSON file with an array of analysis requests (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of requests to process (0 = all)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "max concurrent analyses")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}
