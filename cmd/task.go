package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/sells-group/analysis-core/internal/model"
	"github.com/sells-group/analysis-core/internal/orchestrator"
	"github.com/sells-group/analysis-core/internal/tracker"
)

// profileTask is the built-in dataset profiling task run by the CLI. Richer
// computation tasks plug in through the same TaskFactory seam.
func profileTask(spec model.TaskSpec) tracker.Task {
	return tracker.TaskFunc(func(ctx context.Context, report tracker.ProgressFunc) (*model.TaskOutput, error) {
		report(10, "profile", "inspecting columns")

		names := spec.ColumnNames()
		sort.Strings(names)

		typed := 0
		for _, col := range spec.Columns {
			if col.Type != "" {
				typed++
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report(60, "profile", "summarizing dataset")

		insights := []string{
			fmt.Sprintf("dataset exposes %d columns: %v", len(names), names),
		}
		if typed > 0 {
			insights = append(insights, fmt.Sprintf("%d of %d columns carry declared types", typed, len(names)))
		}
		if spec.Question != "" {
			insights = append(insights, fmt.Sprintf("question under analysis: %s", spec.Question))
		}

		report(90, "profile", "summary ready")
		return &model.TaskOutput{Insights: insights}, nil
	})
}

// defaultFactory adapts profileTask to the orchestrator's factory seam.
var defaultFactory orchestrator.TaskFactory = profileTask
