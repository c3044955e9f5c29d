package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	historyLimit    int
	similarQuestion string
	similarLimit    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the analysis history store",
}

var historyRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent analysis records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initHistory(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.Recent(ctx, historyLimit)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

var historySimilarCmd = &cobra.Command{
	Use:   "similar",
	Short: "Find past analyses similar to a question",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initHistory(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.FindSimilar(ctx, similarQuestion, similarLimit)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show outcome counts and error patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initHistory(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		counts, err := st.Counts(ctx)
		if err != nil {
			return err
		}
		patterns, err := st.ErrorPatterns(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"outcomes":       counts,
			"error_patterns": patterns,
		})
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initHistory(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		removed, err := st.Prune(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("history pruned", zap.Int("removed", removed))
		return nil
	},
}

func init() {
	historyRecentCmd.Flags().IntVar(&historyLimit, "limit", 20, "max records to show")
	historySimilarCmd.Flags().StringVar(&similarQuestion, "question", "", "question to match (required)")
	historySimilarCmd.Flags().IntVar(&similarLimit, "limit", 5, "max records to show")
	_ = historySimilarCmd.MarkFlagRequired("question")

	historyCmd.AddCommand(historyRecentCmd, historySimilarCmd, historyStatsCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
