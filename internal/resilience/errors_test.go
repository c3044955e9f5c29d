package resilience

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/analysis-core/internal/model"
)

func TestCategorizedError_RoundTrip(t *testing.T) {
	base := errors.New("connection reset")
	err := NewRecoverable(base, model.CategoryTransient)

	cat, ok := CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, model.CategoryTransient, cat)
	assert.True(t, IsRecoverable(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "connection reset", err.Error())
}

func TestCategoryOf_Wrapped(t *testing.T) {
	inner := NewNonRecoverable(errors.New("corrupt input"))
	wrapped := fmt.Errorf("stage two: %w", inner)

	cat, ok := CategoryOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, model.CategoryNonRecoverable, cat)
	assert.False(t, IsRecoverable(wrapped))
}

func TestCategoryOf_Uncategorized(t *testing.T) {
	_, ok := CategoryOf(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, IsRecoverable(errors.New("plain")))
}

func TestNewRecoverable_NormalizesFatalCategory(t *testing.T) {
	err := NewRecoverable(errors.New("oops"), model.CategoryNonRecoverable)

	cat, ok := CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, model.CategoryTransient, cat)
}
