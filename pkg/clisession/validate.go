package clisession

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ExpectationType names the structured validateOutput variants from
// spec.md §4.3 beyond the plain-string/regex:/contains: forms.
type ExpectationType string

// Structured expectation types.
const (
	ExpectJSON       ExpectationType = "json"
	ExpectContains   ExpectationType = "contains"
	ExpectNotContain ExpectationType = "not_contains"
	ExpectStartsWith ExpectationType = "starts_with"
	ExpectEndsWith   ExpectationType = "ends_with"
	ExpectLength     ExpectationType = "length"
	ExpectEmpty      ExpectationType = "empty"
	ExpectNotEmpty   ExpectationType = "not_empty"
)

// ValidateStructuredOutput implements the `{type, value}` branch of
// validateOutput(actual, expected) (spec.md §4.3).
func ValidateStructuredOutput(actual string, expectType ExpectationType, value string) (bool, error) {
	switch expectType {
	case ExpectJSON:
		var a, e any
		if err := json.Unmarshal([]byte(actual), &a); err != nil {
			return false, fmt.Errorf("%w: actual is not valid JSON: %v", ErrInvalidExpectation, err)
		}
		if err := json.Unmarshal([]byte(value), &e); err != nil {
			return false, fmt.Errorf("%w: expected value is not valid JSON: %v", ErrInvalidExpectation, err)
		}
		return reflect.DeepEqual(a, e), nil
	case ExpectContains:
		return strings.Contains(actual, value), nil
	case ExpectNotContain:
		return !strings.Contains(actual, value), nil
	case ExpectStartsWith:
		return strings.HasPrefix(actual, value), nil
	case ExpectEndsWith:
		return strings.HasSuffix(actual, value), nil
	case ExpectLength:
		n, err := strconv.Atoi(value)
		if err != nil {
			return false, fmt.Errorf("%w: length expects an integer, got %q", ErrInvalidExpectation, value)
		}
		return len(actual) == n, nil
	case ExpectEmpty:
		return strings.TrimSpace(actual) == "", nil
	case ExpectNotEmpty:
		return strings.TrimSpace(actual) != "", nil
	default:
		return false, fmt.Errorf("%w: unknown expectation type %q", ErrInvalidExpectation, expectType)
	}
}
