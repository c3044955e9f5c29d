package resilience

import (
	"errors"

	"github.com/sells-group/analysis-core/internal/model"
)

// CategorizedError wraps an error with an explicit error category so the
// orchestrator can make retry decisions without string matching. Task
// implementations raise these; the inspector falls back to message
// heuristics for uncategorized errors.
type CategorizedError struct {
	Category model.ErrorCategory
	Err      error
}

func (e *CategorizedError) Error() string {
	return e.Err.Error()
}

func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewRecoverable wraps err as a retry-eligible failure in the given
// recoverable category. Passing a non-recoverable category is a programmer
// error and is normalized to transient.
func NewRecoverable(err error, category model.ErrorCategory) *CategorizedError {
	if !category.RetryEligible() {
		category = model.CategoryTransient
	}
	return &CategorizedError{Category: category, Err: err}
}

// NewNonRecoverable wraps err as a fatal failure that must never be retried.
func NewNonRecoverable(err error) *CategorizedError {
	return &CategorizedError{Category: model.CategoryNonRecoverable, Err: err}
}

// CategoryOf extracts the explicit category from an error chain. Returns
// ("", false) when no CategorizedError is present.
func CategoryOf(err error) (model.ErrorCategory, bool) {
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce.Category, true
	}
	return "", false
}

// IsRecoverable reports whether the error carries an explicitly
// retry-eligible category.
func IsRecoverable(err error) bool {
	cat, ok := CategoryOf(err)
	return ok && cat.RetryEligible()
}
