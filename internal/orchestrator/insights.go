package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/analysis-core/internal/model"
)

// similarLookupLimit bounds the history consultation during synthesis.
const similarLookupLimit = 5

// synthesize assembles the caller-facing insights and recommendations from
// the task output, the classification, and prior similar analyses. Output
// may be nil for degraded or failed jobs.
func (o *Orchestrator) synthesize(ctx context.Context, class model.Classification, output *model.TaskOutput, questionText string, status model.OutcomeStatus) ([]string, []string) {
	var insights, recs []string
	if output != nil {
		insights = append(insights, output.Insights...)
		recs = append(recs, output.Recommendations...)
	}

	switch status {
	case model.OutcomeDegraded:
		if len(insights) == 0 {
			insights = append(insights, fmt.Sprintf("analysis for %q completed with reduced fidelity", class.Industry))
		}
	case model.OutcomeSucceeded:
	default:
		return insights, recs
	}

	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		seen[r] = true
	}
	for _, name := range class.SuggestedAnalyses {
		if !seen[name] {
			recs = append(recs, name)
			seen[name] = true
		}
	}

	// Prior successful runs of similar questions seed follow-up suggestions.
	similar, err := o.history.FindSimilar(ctx, questionText, similarLookupLimit)
	if err != nil {
		zap.L().Warn("orchestrator: similarity lookup failed", zap.Error(err))
		return insights, recs
	}
	for _, rec := range similar {
		if rec.OutcomeStatus != model.OutcomeSucceeded {
			continue
		}
		for _, name := range rec.Classification.SuggestedAnalyses {
			if !seen[name] {
				recs = append(recs, name)
				seen[name] = true
			}
		}
	}
	return insights, recs
}
