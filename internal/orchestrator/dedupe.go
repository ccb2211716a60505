package orchestrator

import (
	"strings"

	"github.com/joescharf/junior/internal/models"
)

// Dedupe merges duplicate findings: same category, same path, overlapping
// line anchors, and message similarity at or above threshold. The survivor
// keeps the higher severity, the higher confidence, and the union of
// suggested fixes. Merging an already-deduplicated list is a no-op.
func Dedupe(findings []models.Finding, threshold float64) []models.Finding {
	var out []models.Finding
	for _, f := range findings {
		merged := false
		for i := range out {
			if isDuplicate(out[i], f, threshold) {
				out[i] = merge(out[i], f)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, f)
		}
	}
	return out
}

func isDuplicate(a, b models.Finding, threshold float64) bool {
	if a.Category != b.Category || !a.Overlaps(b) {
		return false
	}
	return similarity(a.Message, b.Message) >= threshold
}

// merge combines b into a, preserving a's position in the list.
func merge(a, b models.Finding) models.Finding {
	if b.Severity.Rank() > a.Severity.Rank() {
		a.Severity = b.Severity
	}
	if b.Confidence > a.Confidence {
		a.Confidence = b.Confidence
	}
	if b.Suggestion != "" && b.Suggestion != a.Suggestion {
		if a.Suggestion == "" {
			a.Suggestion = b.Suggestion
		} else if !strings.Contains(a.Suggestion, b.Suggestion) {
			a.Suggestion = a.Suggestion + "\n" + b.Suggestion
		}
	}
	// The survivor keeps its own anchor and message so the identity fields
	// compared by isDuplicate never change; that keeps Dedupe idempotent.
	return a
}

// similarity is the Jaccard index over lowercased word sets. Cheap, order
// insensitive, and good enough to judge two messages equivalent.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	aWords := wordSet(a)
	bWords := wordSet(b)
	if len(aWords) == 0 || len(bWords) == 0 {
		return 0
	}
	intersection := 0
	for w := range aWords {
		if bWords[w] {
			intersection++
		}
	}
	union := len(aWords) + len(bWords) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'`")
		if w != "" {
			set[w] = true
		}
	}
	return set
}
