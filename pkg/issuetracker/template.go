package issuetracker

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

var (
	sectionPattern = regexp.MustCompile(`(?s)\{\{#([a-zA-Z0-9_.]+)\}\}(.*?)\{\{/([a-zA-Z0-9_.]+)\}\}`)
	varPattern     = regexp.MustCompile(`\{\{([a-zA-Z0-9_.]+)\}\}`)
)

// Render implements spec.md §4.6's template language: {{var}} scalar
// substitution, {{obj.prop}} property access, {{#array}}...{{this}}...{{/array}}
// iteration, and conditional-block collapse when the section variable is
// empty or falsy.
func Render(tmpl string, data map[string]any) string {
	out := sectionPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		groups := sectionPattern.FindStringSubmatch(match)
		name, body := groups[1], groups[2]

		val, ok := lookup(data, name)
		if !ok || isFalsy(val) {
			return ""
		}

		if items, isSlice := asSlice(val); isSlice {
			var b strings.Builder
			for _, item := range items {
				b.WriteString(strings.ReplaceAll(body, "{{this}}", toDisplay(item)))
			}
			return b.String()
		}
		return body
	})

	out = varPattern.ReplaceAllStringFunc(out, func(match string) string {
		name := varPattern.FindStringSubmatch(match)[1]
		val, ok := lookup(data, name)
		if !ok {
			return ""
		}
		return toDisplay(val)
	})
	return out
}

func lookup(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = data
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func isFalsy(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case bool:
		return !t
	case int:
		return t == 0
	default:
		if items, ok := asSlice(v); ok {
			return len(items) == 0
		}
		return false
	}
}

func asSlice(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toDisplay(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// TruncateBody cuts a body longer than maxLen so that the kept prefix plus
// the truncation marker is maxLen bytes; when maxLen is shorter than the
// marker, only the marker is returned. maxLen <= 0 disables truncation.
func TruncateBody(body string, maxLen int) string {
	if maxLen <= 0 || len(body) <= maxLen {
		return body
	}
	const marker = "\n\n...[truncated]"
	cut := maxLen - len(marker)
	if cut < 0 {
		cut = 0
	}
	return body[:cut] + marker
}
