package model

// AnalysisRequest describes one dataset/question pair submitted for analysis.
// It is immutable once accepted by the orchestrator.
type AnalysisRequest struct {
	DatasetColumns []string       `json:"dataset_columns"`
	QuestionText   string         `json:"question_text"`
	Options        map[string]any `json:"options,omitempty"`
}

// IsEmpty reports whether the request carries no classifiable input at all.
func (r AnalysisRequest) IsEmpty() bool {
	return len(r.DatasetColumns) == 0 && r.QuestionText == ""
}

// Classification is the industry label assigned to a request. Produced once
// per request and never mutated afterwards.
type Classification struct {
	Industry          string   `json:"industry"`
	Confidence        float64  `json:"confidence"`
	MatchedIndicators []string `json:"matched_indicators,omitempty"`
	Subtype           string   `json:"subtype,omitempty"`
	SuggestedAnalyses []string `json:"suggested_analyses,omitempty"`
}

// IndustryGeneral is the fallback label used when no industry clears the
// confidence threshold. Classification never hard-fails on low confidence.
const IndustryGeneral = "general"
