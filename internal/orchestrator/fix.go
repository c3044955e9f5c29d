package orchestrator

import "github.com/sells-group/analysis-core/internal/model"

// applyFix rewrites the task spec in place per the inspector's remediation.
// Returns false when the fix does not apply to the current spec, in which
// case the spec is left untouched.
func applyFix(spec *model.TaskSpec, fix model.Fix) bool {
	switch fix.Kind {
	case model.FixColumnRename:
		from, to := fix.Payload["from"], fix.Payload["to"]
		if from == "" || to == "" || from == to {
			return false
		}
		if col, ok := spec.Columns[from]; ok {
			if _, taken := spec.Columns[to]; taken {
				return false
			}
			spec.Columns[to] = col
			delete(spec.Columns, from)
			return true
		}
		// The misnamed reference is not a declared column; record it as an
		// alias the task resolves against the real column at read time.
		if _, ok := spec.Columns[to]; !ok {
			return false
		}
		aliases, _ := spec.Options["column_aliases"].(map[string]string)
		if aliases == nil {
			aliases = make(map[string]string)
		}
		aliases[from] = to
		if spec.Options == nil {
			spec.Options = make(map[string]any)
		}
		spec.Options["column_aliases"] = aliases
		return true

	case model.FixTypeCoercion:
		column, toType := fix.Payload["column"], fix.Payload["to_type"]
		if column == "" || toType == "" {
			return false
		}
		col, ok := spec.Columns[column]
		if !ok {
			return false
		}
		col.Type = toType
		spec.Columns[column] = col
		return true
	}
	return false
}
