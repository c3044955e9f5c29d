package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/analysis-core/internal/model"
)

func renameFix(from, to string) model.Fix {
	return model.Fix{
		Kind:    model.FixColumnRename,
		Payload: map[string]string{"from": from, "to": to},
	}
}

func TestApplyFix_RenamesDeclaredColumn(t *testing.T) {
	spec := model.TaskSpec{
		Columns: map[string]model.ColumnSpec{
			"revenu":    {Type: "float"},
			"inventory": {},
		},
	}

	require.True(t, applyFix(&spec, renameFix("revenu", "revenue")))

	assert.NotContains(t, spec.Columns, "revenu")
	require.Contains(t, spec.Columns, "revenue")
	assert.Equal(t, "float", spec.Columns["revenue"].Type)
}

func TestApplyFix_RenameRefusesToClobber(t *testing.T) {
	spec := model.TaskSpec{
		Columns: map[string]model.ColumnSpec{
			"revenu":  {},
			"revenue": {},
		},
	}

	assert.False(t, applyFix(&spec, renameFix("revenu", "revenue")))
	assert.Contains(t, spec.Columns, "revenu")
}

func TestApplyFix_AliasForUndeclaredReference(t *testing.T) {
	spec := model.TaskSpec{
		Columns: map[string]model.ColumnSpec{"sales_amount": {}},
	}

	// "sales_amt" was never declared; the fix records an alias instead of
	// renaming anything.
	require.True(t, applyFix(&spec, renameFix("sales_amt", "sales_amount")))

	aliases, ok := spec.Options["column_aliases"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "sales_amount", aliases["sales_amt"])
	assert.Contains(t, spec.Columns, "sales_amount")
}

func TestApplyFix_AliasRequiresKnownTarget(t *testing.T) {
	spec := model.TaskSpec{
		Columns: map[string]model.ColumnSpec{"inventory": {}},
	}

	assert.False(t, applyFix(&spec, renameFix("sales_amt", "sales_amount")))
	assert.Nil(t, spec.Options)
}

func TestApplyFix_CoercesType(t *testing.T) {
	spec := model.TaskSpec{
		Columns: map[string]model.ColumnSpec{"amount": {Type: "string"}},
	}

	fix := model.Fix{
		Kind:    model.FixTypeCoercion,
		Payload: map[string]string{"column": "amount", "to_type": "float"},
	}
	require.True(t, applyFix(&spec, fix))
	assert.Equal(t, "float", spec.Columns["amount"].Type)
}

func TestApplyFix_CoercionUnknownColumn(t *testing.T) {
	spec := model.TaskSpec{
		Columns: map[string]model.ColumnSpec{"amount": {Type: "string"}},
	}

	fix := model.Fix{
		Kind:    model.FixTypeCoercion,
		Payload: map[string]string{"column": "total", "to_type": "float"},
	}
	assert.False(t, applyFix(&spec, fix))
}

func TestApplyFix_EmptyPayload(t *testing.T) {
	spec := model.TaskSpec{Columns: map[string]model.ColumnSpec{"a": {}}}

	assert.False(t, applyFix(&spec, model.Fix{Kind: model.FixColumnRename}))
	assert.False(t, applyFix(&spec, model.Fix{Kind: model.FixTypeCoercion}))
	assert.False(t, applyFix(&spec, model.Fix{Kind: "unknown"}))
}

func TestEmitter_FloorAbsorbsRegression(t *testing.T) {
	log := &progressLog{}
	em := newEmitter("job-1", log.sink)

	em.emit(40, "compute", "")
	em.emit(20, "compute", "")
	em.emit(60, "compute", "")

	events := log.all()
	require.Len(t, events, 3)
	assert.Equal(t, []int{40, 40, 60}, []int{events[0].Percent, events[1].Percent, events[2].Percent})
}

func TestEmitter_CapsAt99BeforeTerminal(t *testing.T) {
	log := &progressLog{}
	em := newEmitter("job-1", log.sink)

	em.emit(250, "compute", "")
	events := log.all()
	require.Len(t, events, 1)
	assert.Equal(t, 99, events[0].Percent)
}

func TestEmitter_SingleTerminalEvent(t *testing.T) {
	log := &progressLog{}
	em := newEmitter("job-1", log.sink)

	em.emit(30, "compute", "")
	em.terminal(model.OutcomeSucceeded)
	em.terminal(model.OutcomeFailed)
	em.emit(50, "compute", "late event dropped")

	events := log.all()
	require.Len(t, events, 2)
	assert.Equal(t, 100, events[1].Percent)
	assert.Equal(t, "done", events[1].Stage)
	assert.Equal(t, string(model.OutcomeSucceeded), events[1].Message)
}

func TestEmitter_AttemptSinkRescales(t *testing.T) {
	log := &progressLog{}
	em := newEmitter("job-1", log.sink)

	sink := em.attemptSink()
	require.NotNil(t, sink)

	sink(model.ProgressEvent{Percent: 0})
	sink(model.ProgressEvent{Percent: 100})

	events := log.all()
	require.Len(t, events, 2)
	assert.Equal(t, 10, events[0].Percent)
	assert.Equal(t, 95, events[1].Percent)
}

func TestEmitter_NilSinkIsNoOp(t *testing.T) {
	em := newEmitter("job-1", nil)
	em.emit(50, "compute", "")
	em.terminal(model.OutcomeSucceeded)
	assert.Nil(t, em.attemptSink())
}
