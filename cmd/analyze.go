package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/analysis-core/internal/model"
)

var (
	analyzeQuestion    string
	analyzeColumns     []string
	analyzeColumnTypes map[string]string
	analyzeProgress    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis for a dataset/question pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.AnalysisRequest{
			DatasetColumns: analyzeColumns,
			QuestionText:   analyzeQuestion,
		}
		if len(analyzeColumnTypes) > 0 {
			req.Options = map[string]any{"column_types": analyzeColumnTypes}
		}

		var sink func(model.ProgressEvent)
		if analyzeProgress {
			sink = func(ev model.ProgressEvent) {
				cmd.PrintErrf("[%3d%%] %-10s %s\n", ev.Percent, ev.Stage, ev.Message)
			}
		}

		result := env.Orchestrator.Orchestrate(ctx, req, defaultFactory, sink)

		zap.L().Info("analysis complete",
			zap.String("job_id", result.JobID),
			zap.String("status", string(result.Status)),
			zap.String("industry", result.Classification.Industry),
			zap.Int("attempts", result.Attempts),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeQuestion, "question", "", "analysis question")
	analyzeCmd.Flags().StringSliceVar(&analyzeColumns, "columns", nil, "dataset column names")
	analyzeCmd.Flags().StringToStringVar(&analyzeColumnTypes, "column-types", nil, "declared column types (name=type)")
	analyzeCmd.Flags().BoolVar(&analyzeProgress, "progress", false, "print progress events to stderr")
	rootCmd.AddCommand(analyzeCmd)
}
