package analyzer

import (
	"regexp"
	"strconv"

	"github.com/joescharf/junior/internal/models"
)

var (
	closingRefPattern = regexp.MustCompile(`(?i)\b(?:close[sd]?|fix(?:e[sd])?|resolve[sd]?)\s+#(\d+)`)
	bareRefPattern    = regexp.MustCompile(`#(\d+)`)
)

// ParseIssueRefs extracts linked-issue references from PR and commit text.
// Closing keywords ("fixes #12") take precedence over bare "#12" mentions of
// the same issue.
func ParseIssueRefs(texts ...string) []models.IssueRef {
	relations := make(map[int]string)
	var order []int

	note := func(num int, relation string) {
		if existing, ok := relations[num]; ok {
			if existing == "references" && relation == "closes" {
				relations[num] = relation
			}
			return
		}
		relations[num] = relation
		order = append(order, num)
	}

	for _, text := range texts {
		for _, m := range closingRefPattern.FindAllStringSubmatch(text, -1) {
			if num, err := strconv.Atoi(m[1]); err == nil {
				note(num, "closes")
			}
		}
		for _, m := range bareRefPattern.FindAllStringSubmatch(text, -1) {
			if num, err := strconv.Atoi(m[1]); err == nil {
				note(num, "references")
			}
		}
	}

	refs := make([]models.IssueRef, 0, len(order))
	for _, num := range order {
		refs = append(refs, models.IssueRef{Number: num, Relation: relations[num]})
	}
	return refs
}
