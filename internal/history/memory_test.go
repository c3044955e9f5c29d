package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/analysis-core/internal/model"
)

func record(id, question string, status model.OutcomeStatus, ts time.Time) model.HistoryRecord {
	return model.HistoryRecord{
		ID:            id,
		QuestionText:  question,
		OutcomeStatus: status,
		Timestamp:     ts,
	}
}

func TestMemoryStore_AppendIdempotent(t *testing.T) {
	ctx := context.Background()
	st := NewMemory(DefaultRetention())

	r := record("r1", "sales trends", model.OutcomeSucceeded, time.Now().UTC())
	require.NoError(t, st.Append(ctx, r))
	require.NoError(t, st.Append(ctx, r))

	assert.Equal(t, 1, st.Len())
}

func TestMemoryStore_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := NewMemory(DefaultRetention())
	now := time.Now().UTC()

	for i := range 5 {
		require.NoError(t, st.Append(ctx, record(
			fmt.Sprintf("r%d", i), "q", model.OutcomeSucceeded, now.Add(time.Duration(i)*time.Second))))
	}

	recent, err := st.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "r4", recent[0].ID)
	assert.Equal(t, "r3", recent[1].ID)
	assert.Equal(t, "r2", recent[2].ID)
}

func TestMemoryStore_RetentionFIFO(t *testing.T) {
	ctx := context.Background()
	st := NewMemory(Retention{MaxRecords: 3})
	now := time.Now().UTC()

	for i := range 5 {
		require.NoError(t, st.Append(ctx, record(
			fmt.Sprintf("r%d", i), "q", model.OutcomeSucceeded, now.Add(time.Duration(i)*time.Second))))
	}

	assert.Equal(t, 3, st.Len())
	recent, err := st.Recent(ctx, 10)
	require.NoError(t, err)
	ids := []string{recent[0].ID, recent[1].ID, recent[2].ID}
	assert.Equal(t, []string{"r4", "r3", "r2"}, ids)
}

func TestMemoryStore_RetentionByAge(t *testing.T) {
	ctx := context.Background()
	st := NewMemory(Retention{MaxAge: time.Hour})
	now := time.Now().UTC()

	require.NoError(t, st.Append(ctx, record("stale", "q", model.OutcomeFailed, now.Add(-2*time.Hour))))
	require.NoError(t, st.Append(ctx, record("fresh", "q", model.OutcomeSucceeded, now)))

	removed, err := st.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed) // already trimmed on append
	assert.Equal(t, 1, st.Len())

	recent, err := st.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "fresh", recent[0].ID)
}

func TestMemoryStore_CountsAndPatterns(t *testing.T) {
	ctx := context.Background()
	st := NewMemory(DefaultRetention())
	now := time.Now().UTC()

	require.NoError(t, st.Append(ctx, record("a", "q", model.OutcomeSucceeded, now)))
	require.NoError(t, st.Append(ctx, record("b", "q", model.OutcomeSucceeded, now)))

	failed := record("c", "q", model.OutcomeFailed, now)
	failed.ErrorCategory = model.CategoryTimeout
	require.NoError(t, st.Append(ctx, failed))

	degraded := record("d", "q", model.OutcomeDegraded, now)
	degraded.ErrorCategory = model.CategoryTransient
	require.NoError(t, st.Append(ctx, degraded))

	counts, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[model.OutcomeStatus]int{
		model.OutcomeSucceeded: 2,
		model.OutcomeFailed:    1,
		model.OutcomeDegraded:  1,
	}, counts)

	patterns, err := st.ErrorPatterns(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[model.ErrorCategory]int{
		model.CategoryTimeout:   1,
		model.CategoryTransient: 1,
	}, patterns)
}

func TestMemoryStore_FindSimilar(t *testing.T) {
	ctx := context.Background()
	st := NewMemory(DefaultRetention())
	now := time.Now().UTC()

	require.NoError(t, st.Append(ctx, record("match", "sales trends by region", model.OutcomeSucceeded, now)))
	require.NoError(t, st.Append(ctx, record("other", "patient outcomes", model.OutcomeSucceeded, now)))

	similar, err := st.FindSimilar(ctx, "what are my sales trends", 1)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, "match", similar[0].ID)
}
