package issuetracker

import "strings"

// ClassifyPriority implements spec.md §4.6's issue priority classification.
func ClassifyPriority(category, message string) Priority {
	lowerCat := strings.ToLower(category)
	lowerMsg := strings.ToLower(message)
	switch {
	case lowerCat == "critical" || strings.Contains(lowerMsg, "critical"):
		return PriorityCritical
	case strings.Contains(lowerMsg, "error"):
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// PriorityLabel returns the `priority:<lowercase>` label added alongside
// configured labels.
func PriorityLabel(p Priority) string {
	return "priority:" + strings.ToLower(string(p))
}
