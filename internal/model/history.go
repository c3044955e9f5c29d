package model

import "time"

// HistoryRecord is the append-only trace of one completed job. Records are
// never mutated after insertion.
type HistoryRecord struct {
	ID             string         `json:"id"`
	QuestionText   string         `json:"question_text"`
	Classification Classification `json:"classification"`
	OutcomeStatus  OutcomeStatus  `json:"outcome_status"`
	ErrorCategory  ErrorCategory  `json:"error_category,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// AnalysisResult is the structured outcome delivered to the caller. Callers
// always receive a result, never a raw error, for accepted requests.
type AnalysisResult struct {
	JobID           string            `json:"job_id"`
	Status          OutcomeStatus     `json:"status"`
	Classification  Classification    `json:"classification"`
	Insights        []string          `json:"insights"`
	Recommendations []string          `json:"recommendations"`
	Diagnostics     []DiagnosticEntry `json:"diagnostics"`
	Attempts        int               `json:"attempts"`
	Elapsed         time.Duration     `json:"elapsed"`
}
