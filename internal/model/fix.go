package model

// ErrorCategory classifies a failure for retry and remediation decisions.
type ErrorCategory string

const (
	CategoryInputValidation ErrorCategory = "InputValidationError"
	CategoryDataSchema      ErrorCategory = "DataSchemaError"
	CategoryTypeMismatch    ErrorCategory = "TypeMismatchError"
	CategoryTransient       ErrorCategory = "TransientComputationError"
	CategoryNonRecoverable  ErrorCategory = "NonRecoverableError"
	CategoryTimeout         ErrorCategory = "TimeoutError"
	CategoryCancelled       ErrorCategory = "CancelledError"
)

// RetryEligible reports whether a failure in this category may be retried.
func (c ErrorCategory) RetryEligible() bool {
	switch c {
	case CategoryDataSchema, CategoryTypeMismatch, CategoryTransient:
		return true
	default:
		return false
	}
}

// FixKind enumerates the closed set of machine-applicable remediations.
type FixKind string

const (
	FixColumnRename FixKind = "column_rename"
	FixTypeCoercion FixKind = "type_coercion"
	FixNone         FixKind = "none"
)

// Fix is a structured remediation proposed by the error inspector. Payload
// keys depend on Kind: column_rename carries "from" and "to"; type_coercion
// carries "column" and "to_type".
type Fix struct {
	Kind    FixKind           `json:"kind"`
	Payload map[string]string `json:"payload,omitempty"`
}

// ErrorAnalysis is the inspector's verdict on a single failure.
type ErrorAnalysis struct {
	Category ErrorCategory `json:"category"`
	Fix      *Fix          `json:"fix,omitempty"`
	CacheKey string        `json:"cache_key"`
}
