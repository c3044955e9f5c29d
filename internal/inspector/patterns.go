package inspector

import (
	"regexp"
	"strings"
)

// Message patterns emitted by analysis engines for schema and type
// failures. Ordered most-specific first.
var missingColumnPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)column ['"]([^'"]+)['"] (?:not found|does not exist|is missing)`),
	regexp.MustCompile(`(?i)missing (?:required )?(?:column|field) ['"]([^'"]+)['"]`),
	regexp.MustCompile(`(?i)unknown (?:column|field) ['"]([^'"]+)['"]`),
	regexp.MustCompile(`(?i)no such column:? ['"]?([\w.]+)['"]?`),
	regexp.MustCompile(`(?i)key ?error:? ['"]([^'"]+)['"]`),
}

var (
	typeValuePattern    = regexp.MustCompile(`(?i)(?:convert|coerce|parse) (?:value )?["']([^"']*)["']`)
	typeColumnPattern   = regexp.MustCompile(`(?i)(?:in|for|of) column ['"]([^'"]+)['"]`)
	typeExpectedPattern = regexp.MustCompile(`(?i)(?:to|as|expected) (int|integer|float|number|numeric)`)
	numericPattern      = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	integerPattern      = regexp.MustCompile(`^-?\d+$`)
)

// extractMissingColumn pulls the missing or misnamed column name out of a
// schema error message. Returns "" when the message has no such signature.
func extractMissingColumn(msg string) string {
	for _, re := range missingColumnPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			return m[1]
		}
	}
	return ""
}

// extractTypeConflict pulls the offending value, column, and expected type
// out of a type mismatch message. Any of the three may be empty.
func extractTypeConflict(msg string) (value, column, expected string) {
	if m := typeValuePattern.FindStringSubmatch(msg); m != nil {
		value = m[1]
	}
	if m := typeColumnPattern.FindStringSubmatch(msg); m != nil {
		column = m[1]
	}
	if m := typeExpectedPattern.FindStringSubmatch(msg); m != nil {
		expected = normalizeTypeName(m[1])
	}
	return value, column, expected
}

// inferNumericType guesses a numeric target type for a value, or "" when
// the value does not look numeric.
func inferNumericType(value string) string {
	if !numericPattern.MatchString(value) {
		return ""
	}
	if integerPattern.MatchString(value) {
		return "int"
	}
	return "float"
}

// safeCoercion reports whether value can be coerced to target without data
// loss. An empty value with a known numeric target is accepted: the message
// simply omitted the sample value.
func safeCoercion(value, target string) bool {
	if target == "" {
		return false
	}
	if value == "" {
		return true
	}
	switch target {
	case "int":
		return integerPattern.MatchString(value)
	case "float", "number", "numeric":
		return numericPattern.MatchString(value)
	default:
		return false
	}
}

func normalizeTypeName(name string) string {
	switch strings.ToLower(name) {
	case "integer":
		return "int"
	case "numeric", "number":
		return "float"
	default:
		return strings.ToLower(name)
	}
}
