package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/analysis-core/internal/model"
)

func TestQuestionTokens(t *testing.T) {
	tokens := questionTokens("What are my Sales Trends?")

	_, hasSale := tokens["sale"]
	_, hasTrend := tokens["trend"]
	_, hasWhat := tokens["what"]
	assert.True(t, hasSale)
	assert.True(t, hasTrend)
	assert.True(t, hasWhat)
}

func TestJaccard(t *testing.T) {
	a := questionTokens("sales by region")
	b := questionTokens("sales by store")
	c := questionTokens("patient outcomes")

	ab := jaccard(a, b)
	ac := jaccard(a, c)
	assert.Greater(t, ab, ac)
	assert.Equal(t, 1.0, jaccard(a, a))
	assert.Zero(t, jaccard(a, questionTokens("")))
	assert.Zero(t, jaccard(nil, nil))
}

func TestRankBySimilarity(t *testing.T) {
	now := time.Now().UTC()
	records := []model.HistoryRecord{
		{ID: "old-exact", QuestionText: "sales trends by region", Timestamp: now.Add(-2 * time.Hour)},
		{ID: "unrelated", QuestionText: "patient readmission rates", Timestamp: now},
		{ID: "new-exact", QuestionText: "sales trends by region", Timestamp: now.Add(-time.Hour)},
		{ID: "partial", QuestionText: "sales by store", Timestamp: now},
	}

	ranked := rankBySimilarity(append([]model.HistoryRecord{}, records...), "sales trends by region", 3)
	require.Len(t, ranked, 3)

	// Equal scores tie-break by recency.
	assert.Equal(t, "new-exact", ranked[0].ID)
	assert.Equal(t, "old-exact", ranked[1].ID)
	assert.Equal(t, "partial", ranked[2].ID)
}

func TestRankBySimilarity_Limit(t *testing.T) {
	records := []model.HistoryRecord{
		{ID: "a", QuestionText: "x"},
		{ID: "b", QuestionText: "y"},
	}
	assert.Len(t, rankBySimilarity(records, "x", 1), 1)
	assert.Nil(t, rankBySimilarity(records, "x", 0))
	assert.Nil(t, rankBySimilarity(nil, "x", 5))
}
