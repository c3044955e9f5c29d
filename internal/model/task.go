package model

import "time"

// ColumnSpec declares a dataset column as seen by the computation task.
type ColumnSpec struct {
	Type string `json:"type"`
}

// TaskSpec holds the mutable inputs of one computation attempt. Fixes from
// the error inspector rewrite this spec between attempts: a column_rename
// fix renames a key in Columns, or records a "column_aliases" entry in
// Options when the misnamed reference was never a declared column; a
// type_coercion fix rewrites a ColumnSpec type. The orchestrator clones the
// spec per attempt so a failed attempt never leaks partial mutations into
// the next one.
type TaskSpec struct {
	Columns  map[string]ColumnSpec `json:"columns"`
	Question string                `json:"question"`
	Options  map[string]any        `json:"options,omitempty"`
}

// Clone returns a deep copy of the spec.
func (s TaskSpec) Clone() TaskSpec {
	out := TaskSpec{Question: s.Question}
	if s.Columns != nil {
		out.Columns = make(map[string]ColumnSpec, len(s.Columns))
		for name, col := range s.Columns {
			out.Columns[name] = col
		}
	}
	if s.Options != nil {
		out.Options = make(map[string]any, len(s.Options))
		for k, v := range s.Options {
			out.Options[k] = v
		}
	}
	return out
}

// ColumnNames returns the declared column names in unspecified order.
func (s TaskSpec) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns))
	for name := range s.Columns {
		names = append(names, name)
	}
	return names
}

// TaskOutput is what a computation task produces on success. Partial marks
// reduced-fidelity output usable for a degraded result.
type TaskOutput struct {
	Insights        []string `json:"insights,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Partial         bool     `json:"partial,omitempty"`
}

// ExecState is the execution tracker's state machine. Pending and Running
// are transient; the remaining four states are terminal.
type ExecState string

const (
	ExecPending   ExecState = "pending"
	ExecRunning   ExecState = "running"
	ExecSucceeded ExecState = "succeeded"
	ExecFailed    ExecState = "failed"
	ExecTimedOut  ExecState = "timed_out"
	ExecCancelled ExecState = "cancelled"
)

// Terminal reports whether the state ends an execution.
func (s ExecState) Terminal() bool {
	switch s {
	case ExecSucceeded, ExecFailed, ExecTimedOut, ExecCancelled:
		return true
	default:
		return false
	}
}

// ExecutionResult is the tracker's verdict on one attempt.
type ExecutionResult struct {
	State    ExecState     `json:"state"`
	Output   *TaskOutput   `json:"output,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}
