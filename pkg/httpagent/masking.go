package httpagent

import "strings"

// MaskHeaders returns a copy of headers with sensitive values replaced by
// "***" for logging purposes (spec.md §4.2: "sensitive headers are never
// logged in clear text"). Lookup is case-insensitive.
func MaskHeaders(headers map[string]string, sensitive map[string]bool) map[string]string {
	if len(headers) == 0 {
		return headers
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitive[strings.ToLower(k)] {
			out[k] = "***"
			continue
		}
		out[k] = v
	}
	return out
}
