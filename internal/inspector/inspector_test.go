package inspector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/analysis-core/internal/model"
	"github.com/sells-group/analysis-core/internal/resilience"
)

func newTestInspector(t *testing.T) *Inspector {
	t.Helper()
	insp, err := New(16)
	require.NoError(t, err)
	return insp
}

func TestAnalyze_Categorization(t *testing.T) {
	insp := newTestInspector(t)

	cases := []struct {
		name string
		err  error
		want model.ErrorCategory
	}{
		{"missing column", errors.New(`column 'revenue' not found`), model.CategoryDataSchema},
		{"key error", errors.New(`KeyError: 'customer_id'`), model.CategoryDataSchema},
		{"type mismatch", errors.New(`cannot convert value "abc" in column 'price' to float`), model.CategoryTypeMismatch},
		{"empty dataset", errors.New("empty dataset after filtering"), model.CategoryNonRecoverable},
		{"no rows", errors.New("query returned no rows"), model.CategoryNonRecoverable},
		{"residual", errors.New("worker crashed unexpectedly"), model.CategoryTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			analysis := insp.Analyze(tc.err, Context{})
			assert.Equal(t, tc.want, analysis.Category)
		})
	}
}

func TestAnalyze_ExplicitCategoryWins(t *testing.T) {
	insp := newTestInspector(t)

	// Message heuristics say non-recoverable; the explicit tag says transient.
	err := resilience.NewRecoverable(errors.New("empty dataset shard, retrying helps"), model.CategoryTransient)

	analysis := insp.Analyze(err, Context{})
	assert.Equal(t, model.CategoryTransient, analysis.Category)
}

func TestAnalyze_ProposesRename(t *testing.T) {
	insp := newTestInspector(t)
	ctx := Context{Fields: []string{"sales_amount", "store_id", "inventory"}}

	analysis := insp.Analyze(errors.New(`column 'sales_amt' not found`), ctx)

	require.Equal(t, model.CategoryDataSchema, analysis.Category)
	require.NotNil(t, analysis.Fix)
	assert.Equal(t, model.FixColumnRename, analysis.Fix.Kind)
	assert.Equal(t, "sales_amt", analysis.Fix.Payload["from"])
	assert.Equal(t, "sales_amount", analysis.Fix.Payload["to"])
}

func TestAnalyze_RenameNearMiss(t *testing.T) {
	insp := newTestInspector(t)
	ctx := Context{Fields: []string{"revenue", "cost"}}

	analysis := insp.Analyze(errors.New(`column 'revenu' not found`), ctx)

	require.NotNil(t, analysis.Fix)
	assert.Equal(t, "revenue", analysis.Fix.Payload["to"])
}

func TestAnalyze_NoRenameWhenNothingClose(t *testing.T) {
	insp := newTestInspector(t)
	ctx := Context{Fields: []string{"alpha", "beta"}}

	analysis := insp.Analyze(errors.New(`column 'quarterly_revenue' not found`), ctx)

	assert.Equal(t, model.CategoryDataSchema, analysis.Category)
	assert.Nil(t, analysis.Fix)
}

func TestAnalyze_ProposesCoercion(t *testing.T) {
	insp := newTestInspector(t)
	ctx := Context{Fields: []string{"price"}}

	analysis := insp.Analyze(errors.New(`cannot convert value "12.5" in column 'price' to float`), ctx)

	require.Equal(t, model.CategoryTypeMismatch, analysis.Category)
	require.NotNil(t, analysis.Fix)
	assert.Equal(t, model.FixTypeCoercion, analysis.Fix.Kind)
	assert.Equal(t, "price", analysis.Fix.Payload["column"])
	assert.Equal(t, "float", analysis.Fix.Payload["to_type"])
}

func TestAnalyze_RejectsLossyCoercion(t *testing.T) {
	insp := newTestInspector(t)
	ctx := Context{Fields: []string{"count"}}

	// A fractional value must not be coerced to int.
	analysis := insp.Analyze(errors.New(`cannot convert value "12.5" in column 'count' to integer`), ctx)

	assert.Equal(t, model.CategoryTypeMismatch, analysis.Category)
	assert.Nil(t, analysis.Fix)
}

func TestAnalyze_CacheHit(t *testing.T) {
	insp := newTestInspector(t)
	ctx := Context{Fields: []string{"sales_amount"}}
	err := errors.New(`column 'sales_amt' not found`)

	first := insp.Analyze(err, ctx)
	require.Equal(t, 1, insp.CacheLen())

	second := insp.Analyze(err, ctx)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, insp.CacheLen())
}

func TestAnalyze_FieldSetScopesCache(t *testing.T) {
	insp := newTestInspector(t)
	err := errors.New(`column 'sales_amt' not found`)

	withMatch := insp.Analyze(err, Context{Fields: []string{"sales_amount"}})
	require.NotNil(t, withMatch.Fix)

	// Same error against a schema with no close field: new key, no fix.
	withoutMatch := insp.Analyze(err, Context{Fields: []string{"unrelated"}})
	assert.Nil(t, withoutMatch.Fix)
	assert.NotEqual(t, withMatch.CacheKey, withoutMatch.CacheKey)
	assert.Equal(t, 2, insp.CacheLen())
}

func TestCacheKey_FieldOrderIrrelevant(t *testing.T) {
	a := cacheKey(model.CategoryDataSchema, "x", []string{"a", "b", "c"})
	b := cacheKey(model.CategoryDataSchema, "x", []string{"c", "a", "b"})
	assert.Equal(t, a, b)
}

func TestIsAbbreviationOf(t *testing.T) {
	assert.True(t, isAbbreviationOf("sales_amt", "sales_amount"))
	assert.True(t, isAbbreviationOf("qty", "qty_on_hand"))
	assert.False(t, isAbbreviationOf("sales_amount", "sales_amt"))
	assert.False(t, isAbbreviationOf("ab", "about"))
	assert.False(t, isAbbreviationOf("xyz_amt", "sales_amount"))
}

func TestExtractMissingColumn(t *testing.T) {
	cases := []struct {
		msg  string
		want string
	}{
		{`column 'revenue' not found`, "revenue"},
		{`column "revenue" does not exist`, "revenue"},
		{`missing required column 'region'`, "region"},
		{`unknown field 'zipcode'`, "zipcode"},
		{`no such column: orders.total`, "orders.total"},
		{`KeyError: 'cust_id'`, "cust_id"},
		{`something else entirely`, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, extractMissingColumn(tc.msg), tc.msg)
	}
}

func TestSafeCoercion(t *testing.T) {
	assert.True(t, safeCoercion("42", "int"))
	assert.True(t, safeCoercion("-7", "int"))
	assert.False(t, safeCoercion("12.5", "int"))
	assert.True(t, safeCoercion("12.5", "float"))
	assert.False(t, safeCoercion("abc", "float"))
	assert.False(t, safeCoercion("42", ""))
	assert.True(t, safeCoercion("", "int"))
}
