package issuetracker

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// canonicalInputs is the exact, stably-ordered field set spec.md §4.6 hashes:
// {scenarioId, errorMessage, category||"unknown"}. A struct (rather than a
// map) guarantees field order survives json.Marshal regardless of Go map
// iteration order — the "canonical JSON" the spec calls for.
type canonicalInputs struct {
	ScenarioID   string `json:"scenarioId"`
	ErrorMessage string `json:"errorMessage"`
	Category     string `json:"category"`
}

// ComputeFingerprint is a pure function: identical FailureInput field values
// always yield identical Fingerprint values (spec.md §8: "F(f) == F(f)").
func ComputeFingerprint(f FailureInput) Fingerprint {
	category := f.Category
	if category == "" {
		category = "unknown"
	}

	canonical, _ := json.Marshal(canonicalInputs{
		ScenarioID:   f.ScenarioID,
		ErrorMessage: f.Message,
		Category:     category,
	})
	sum := sha256.Sum256(canonical)
	fp := Fingerprint{Hash: hex.EncodeToString(sum[:])[:16]}

	if f.StackTrace != "" {
		stackSum := md5.Sum([]byte(f.StackTrace))
		fp.StackTraceHash = hex.EncodeToString(stackSum[:])[:8]
	}
	return fp
}

// FingerprintMarker is the literal HTML-comment marker embedded at the end
// of every issue body, and searched for verbatim during deduplication.
func FingerprintMarker(hash string) string {
	return "<!-- fingerprint:" + hash + " -->"
}
