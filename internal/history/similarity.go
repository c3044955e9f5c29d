package history

import (
	"sort"
	"strings"

	"github.com/sells-group/analysis-core/internal/model"
)

// questionTokens splits a question into a normalized token set: lowercase,
// non-alphanumeric boundaries, naive plural stripping so "sales trends" and
// "sale trend" compare equal.
func questionTokens(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		return !alnum
	})

	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = f[:len(f)-1]
		}
		tokens[f] = struct{}{}
	}
	return tokens
}

// jaccard computes token-set Jaccard similarity. Two empty sets score 0.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// rankBySimilarity orders records by descending Jaccard similarity to the
// query, breaking ties by descending recency, and truncates to limit.
// The input slice is ranked in place over a caller-owned snapshot.
func rankBySimilarity(records []model.HistoryRecord, questionText string, limit int) []model.HistoryRecord {
	if limit <= 0 || len(records) == 0 {
		return nil
	}

	query := questionTokens(questionText)
	scores := make(map[string]float64, len(records))
	for _, r := range records {
		scores[r.ID] = jaccard(query, questionTokens(r.QuestionText))
	}

	sort.SliceStable(records, func(i, j int) bool {
		si, sj := scores[records[i].ID], scores[records[j].ID]
		if si != sj {
			return si > sj
		}
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	if len(records) > limit {
		records = records[:limit]
	}
	return records
}
