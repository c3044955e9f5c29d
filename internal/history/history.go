// Package history keeps the append-only record of past analyses and serves
// similarity lookups over it. Records are immutable once stored; retention
// is FIFO by age, never similarity-aware.
package history

import (
	"context"
	"time"

	"github.com/sells-group/analysis-core/internal/model"
)

// Store is the persistence contract required by the orchestration core.
// Append must be idempotent for a given record id. Reads operate against a
// stable snapshot: a concurrent Append never produces a partially-ordered
// read.
type Store interface {
	Append(ctx context.Context, record model.HistoryRecord) error
	FindSimilar(ctx context.Context, questionText string, limit int) ([]model.HistoryRecord, error)
	Recent(ctx context.Context, limit int) ([]model.HistoryRecord, error)
	Counts(ctx context.Context) (map[model.OutcomeStatus]int, error)
	ErrorPatterns(ctx context.Context) (map[model.ErrorCategory]int, error)
	Prune(ctx context.Context) (int, error)
	Close() error
}

// Retention bounds the store. Oldest records are evicted first when either
// limit is exceeded.
type Retention struct {
	// MaxRecords caps the number of stored records. Default: 10000.
	// Zero or negative disables the count bound.
	MaxRecords int

	// MaxAge evicts records older than this. Zero disables the age bound.
	MaxAge time.Duration
}

// DefaultRetention returns the production retention policy.
func DefaultRetention() Retention {
	return Retention{MaxRecords: 10000}
}

// appendTrimInterval is how many appends pass between opportunistic
// retention trims in the SQL-backed stores.
const appendTrimInterval = 128
