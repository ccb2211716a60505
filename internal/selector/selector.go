// Package selector ranks findings and picks the bounded set that gets
// inline comments. Everything else is still represented in the summary, so
// the cap loses placement, never information.
package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joescharf/junior/internal/models"
)

// DefaultMaxComments is the default inline-comment cap.
const DefaultMaxComments = 20

// InlineComment is one finding placed on a specific line.
type InlineComment struct {
	Path    string         `json:"path"`
	Line    int            `json:"line"`
	EndLine int            `json:"end_line,omitempty"`
	Body    string         `json:"body"`
	Finding models.Finding `json:"finding"`
}

// Selection is the publisher-ready view of a review result.
type Selection struct {
	Summary        string          `json:"summary"`
	Inline         []InlineComment `json:"inline"`
	TotalFindings  int             `json:"total_findings"`
	Recommendation models.Recommendation
}

// Select ranks findings by severity then confidence then stable input order
// and returns at most maxCount inline comments plus a summary covering the
// full set. Findings without a line anchor are summary-only. Deterministic:
// the same input always yields the same ordered selection.
func Select(result *models.ReviewResult, maxCount int) Selection {
	if maxCount <= 0 {
		maxCount = DefaultMaxComments
	}

	type ranked struct {
		idx int
		f   models.Finding
	}
	var anchored []ranked
	for i, f := range result.Findings {
		if f.Anchored() {
			anchored = append(anchored, ranked{idx: i, f: f})
		}
	}
	sort.SliceStable(anchored, func(i, j int) bool {
		a, b := anchored[i].f, anchored[j].f
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return anchored[i].idx < anchored[j].idx
	})

	if len(anchored) > maxCount {
		anchored = anchored[:maxCount]
	}

	inline := make([]InlineComment, 0, len(anchored))
	for _, r := range anchored {
		inline = append(inline, InlineComment{
			Path:    r.f.Path,
			Line:    r.f.Line,
			EndLine: r.f.EndLine,
			Body:    commentBody(r.f),
			Finding: r.f,
		})
	}

	return Selection{
		Summary:        Summarize(result),
		Inline:         inline,
		TotalFindings:  len(result.Findings),
		Recommendation: result.Recommendation,
	}
}

// commentBody renders one finding as a review comment.
func commentBody(f models.Finding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**[%s/%s]** %s", f.Category, f.Severity, f.Message)
	if f.Suggestion != "" {
		fmt.Fprintf(&sb, "\n\nSuggestion: %s", f.Suggestion)
	}
	return sb.String()
}

// severityOrder lists severities from most to least severe for reporting.
var severityOrder = []models.Severity{
	models.SeverityCritical,
	models.SeverityHigh,
	models.SeverityMedium,
	models.SeverityLow,
	models.SeverityInfo,
}

// Summarize renders the markdown summary: verdict, severity histogram over
// every finding (capped or not), stage failures, and anchorless findings
// that could not be placed inline.
func Summarize(result *models.ReviewResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Review of %s\n\n", result.Subject.String())
	fmt.Fprintf(&sb, "**Recommendation:** %s\n\n", result.Recommendation)

	if len(result.Findings) == 0 {
		sb.WriteString("No issues found.\n")
	} else {
		fmt.Fprintf(&sb, "%d finding(s):\n\n", len(result.Findings))
		hist := result.Histogram()
		for _, sev := range severityOrder {
			if n := hist[sev]; n > 0 {
				fmt.Fprintf(&sb, "- %s: %d\n", sev, n)
			}
		}
	}

	var unplaced []models.Finding
	for _, f := range result.Findings {
		if !f.Anchored() {
			unplaced = append(unplaced, f)
		}
	}
	if len(unplaced) > 0 {
		sb.WriteString("\n### General\n\n")
		for _, f := range unplaced {
			loc := ""
			if f.Path != "" {
				loc = f.Path + ": "
			}
			fmt.Fprintf(&sb, "- **[%s/%s]** %s%s\n", f.Category, f.Severity, loc, f.Message)
		}
	}

	if len(result.StageFailures) > 0 {
		sb.WriteString("\n### Incomplete stages\n\n")
		for _, sf := range result.StageFailures {
			fmt.Fprintf(&sb, "- %s: %s\n", sf.Category, sf.Reason)
		}
	}

	return sb.String()
}
