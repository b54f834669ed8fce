package triage

import "sort"

var tierRank = map[PriorityTier]int{
	TierCritical: 0,
	TierHigh:     1,
	TierMedium:   2,
	TierLow:      3,
}

// FixOrder sorts assignments by priority tier (CRITICAL first), then within
// a tier ascending by estimated fix effort so quick wins surface first
// (spec.md §4.5). Sorts a copy; the input slice is left untouched.
func FixOrder(assignments []Assignment) []Assignment {
	sorted := make([]Assignment, len(assignments))
	copy(sorted, assignments)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := tierRank[sorted[i].PriorityTier], tierRank[sorted[j].PriorityTier]
		if ri != rj {
			return ri < rj
		}
		return sorted[i].EstimatedFixEffortHours < sorted[j].EstimatedFixEffortHours
	})
	return sorted
}
