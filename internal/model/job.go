package model

import "time"

// JobState represents the current state of an orchestration job.
type JobState string

const (
	JobStateIdle        JobState = "idle"
	JobStateClassifying JobState = "classifying"
	JobStateExecuting   JobState = "executing"
	JobStateRetrying    JobState = "retrying"
	JobStateFinalizing  JobState = "finalizing"
	JobStateDone        JobState = "done"
)

// OutcomeStatus is the terminal disposition of a finished job.
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeDegraded  OutcomeStatus = "degraded"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeCancelled OutcomeStatus = "cancelled"
	OutcomeTimedOut  OutcomeStatus = "timed_out"
)

// Job is one in-flight execution of Orchestrate. It owns its diagnostics
// trail exclusively; nothing outside the owning job appends to it.
type Job struct {
	ID          string            `json:"id"`
	State       JobState          `json:"state"`
	Attempt     int               `json:"attempt"`
	Deadline    time.Time         `json:"deadline"`
	Diagnostics []DiagnosticEntry `json:"diagnostics"`
	CreatedAt   time.Time         `json:"created_at"`
}

// DiagnosticEntry records one notable event in a job's lifetime.
type DiagnosticEntry struct {
	Stage         string `json:"stage"`
	ErrorCategory string `json:"error_category,omitempty"`
	Message       string `json:"message"`
	FixApplied    *Fix   `json:"fix_applied,omitempty"`
}

// ProgressEvent is one update in the monotonic 0-100 percent stream for a
// job. Events are ephemeral and never persisted.
type ProgressEvent struct {
	JobID     string    `json:"job_id"`
	Percent   int       `json:"percent"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
