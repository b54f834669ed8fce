package httpagent

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentictest/orchestrator/pkg/scenario"
	"github.com/xeipuuv/gojsonschema"
)

// Compare applies operator to actual/expected per spec.md §4.2's verification
// operator set; pkg/sysagent reuses it for its own comparisons.
func Compare(operator scenario.Operator, actual, expected string) (bool, error) {
	switch operator {
	case scenario.OpEquals, "":
		return actual == expected, nil
	case scenario.OpContains:
		return strings.Contains(actual, expected), nil
	case scenario.OpMatches:
		re, err := regexp.Compile(expected)
		if err != nil {
			return false, fmt.Errorf("invalid matches pattern %q: %w", expected, err)
		}
		return re.MatchString(actual), nil
	case scenario.OpGreaterThan:
		a, err1 := strconv.ParseFloat(actual, 64)
		e, err2 := strconv.ParseFloat(expected, 64)
		if err1 != nil || err2 != nil {
			return false, fmt.Errorf("greaterThan requires numeric operands, got %q / %q", actual, expected)
		}
		return a > e, nil
	case scenario.OpLessThan:
		a, err1 := strconv.ParseFloat(actual, 64)
		e, err2 := strconv.ParseFloat(expected, 64)
		if err1 != nil || err2 != nil {
			return false, fmt.Errorf("lessThan requires numeric operands, got %q / %q", actual, expected)
		}
		return a < e, nil
	case scenario.OpExists:
		return actual != "", nil
	default:
		return false, fmt.Errorf("unknown operator %q", operator)
	}
}

// ExtractField resolves a dotted path (e.g. "data.items.0.id") against a
// decoded JSON value: map keys by name, array elements by decimal index.
func ExtractField(value any, path string) (any, bool) {
	if path == "" {
		return value, true
	}
	cur := value
	for _, part := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			cur = v[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// stringify renders a decoded JSON value as a comparison string.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// ValidateStatus checks resp.Status against expected using operator.
func ValidateStatus(resp HTTPResponse, expected string, operator scenario.Operator) (bool, error) {
	return Compare(operator, strconv.Itoa(resp.Status), expected)
}

// ValidateHeader checks one response header's value.
func ValidateHeader(resp HTTPResponse, name, expected string, operator scenario.Operator) (bool, error) {
	for k, v := range resp.Headers {
		if strings.EqualFold(k, name) {
			return Compare(operator, v, expected)
		}
	}
	return Compare(operator, "", expected)
}

// ValidateBodyField checks a field path within resp.Data (the decoded JSON
// body) against expected.
func ValidateBodyField(resp HTTPResponse, path, expected string, operator scenario.Operator) (bool, error) {
	val, ok := ExtractField(resp.Data, path)
	if !ok {
		if operator == scenario.OpExists {
			return false, nil
		}
		return false, fmt.Errorf("field %q not found in response body", path)
	}
	if operator == scenario.OpExists {
		return true, nil
	}
	return Compare(operator, stringify(val), expected)
}

// ValidateResponseValue implements validate_response(value) (spec.md §4.2):
// if value parses as JSON, it's deep-equal compared against the decoded
// response body; otherwise the response body is stringified and checked for
// substring containment of value.
func ValidateResponseValue(resp HTTPResponse, value string) bool {
	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err == nil {
		return reflect.DeepEqual(parsed, resp.Data)
	}
	return strings.Contains(stringify(resp.Data), value)
}

// ValidateSchema validates resp.Body against a JSON Schema document, per
// spec.md §4.2's validate_schema action. schemaJSON is the schema itself, not
// a file path — loading schemas from disk is out of scope for this package.
func ValidateSchema(resp HTTPResponse, schemaJSON string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	docLoader := gojsonschema.NewStringLoader(resp.Body)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidSchema, strings.Join(msgs, "; "))
	}
	return nil
}
