package engine

import (
	"fmt"
	"strings"

	"github.com/joescharf/junior/internal/models"
)

// findingSchema is shared by every category prompt so responses parse into
// one structure.
const findingSchema = `Return ONLY a JSON array of finding objects with these fields:
- "severity": one of "critical", "high", "medium", "low", "info"
- "path": repository-relative file path the finding applies to
- "line": line number in the file at the head commit (omit or 0 if the finding has no single location)
- "end_line": last line of the affected range (omit for single-line findings)
- "message": clear description of the issue
- "suggestion": how to fix it (optional)
- "confidence": 0.0-1.0, how certain you are this is a real issue

Rules:
- Return valid JSON only, no markdown fencing or explanation
- Return [] when there is nothing worth reporting
- Only report issues a conventional linter cannot catch
- Do not repeat an issue already listed under "Previously reported findings"`

var categoryPrompts = map[models.Category]string{
	models.CategoryLogic: `You are a senior software architect reviewing a pull request.
Analyze the changes for logic flow issues (incorrect conditionals, missing
edge cases, unreachable paths), architecture violations (broken patterns,
tight coupling, mixed concerns), and data flow problems (incorrect state
management, potential race conditions, missing validation).`,

	models.CategorySecurity: `You are a security expert focusing on logical vulnerabilities.
Look for missing permission checks, privilege escalation paths and
authentication bypass conditions; business-logic vulnerabilities such as
race conditions in critical operations or state manipulation; and data
security flaws like path traversal or unvalidated redirects. Focus on
LOGICAL security flaws, not implementation details a scanner would catch.`,

	models.CategoryCriticalBug: `You are a bug hunter specializing in critical defects.
Search for boundary errors in critical paths, resource leaks, deadlock
potential, concurrent access without locking, and corruption risks.
Prioritize anything that could lead to crashes, data loss, or exploitation.
Report critical and high severity findings only.`,

	models.CategoryNaming: `Review naming for readability and maintainability, focusing on what
linters cannot catch: names that do not match their actual purpose,
misleading or ambiguous names, inconsistent patterns within a module, and
public interface names that hide side effects. Ignore pure style issues
like casing conventions.`,

	models.CategoryOptimization: `Analyze the changes for significant optimization opportunities:
inefficient algorithms, redundant computations, N+1 query patterns,
unclosed resources, and blocking operations on hot paths. Focus on
impactful optimizations, not micro-optimizations.`,

	models.CategoryDesignPrinciple: `Evaluate adherence to core design principles: DRY (duplicated logic that
should be extracted), KISS (over-engineered solutions to simple problems),
single responsibility (functions doing too many things), and
maintainability (hard-to-test code, hidden dependencies, magic numbers).`,
}

// buildPrompt constructs the system and user prompts for one category.
func buildPrompt(category models.Category, bundle *models.EvidenceBundle, prior []models.Finding) (system string, user string) {
	system = categoryPrompts[category] + "\n\n" + findingSchema

	var sb strings.Builder
	fmt.Fprintf(&sb, "Pull request: %s\n", bundle.Subject.String())
	if bundle.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", bundle.Title)
	}
	if bundle.Description != "" {
		fmt.Fprintf(&sb, "Description:\n%s\n", bundle.Description)
	}
	if len(bundle.ProjectKinds) > 0 {
		fmt.Fprintf(&sb, "Project kinds: %s\n", strings.Join(bundle.ProjectKinds, ", "))
	}
	if len(bundle.LinkedIssues) > 0 {
		var refs []string
		for _, ref := range bundle.LinkedIssues {
			refs = append(refs, fmt.Sprintf("#%d (%s)", ref.Number, ref.Relation))
		}
		fmt.Fprintf(&sb, "Linked issues: %s\n", strings.Join(refs, ", "))
	}
	if len(bundle.CommitMessages) > 0 {
		sb.WriteString("\nCommits:\n")
		for _, msg := range bundle.CommitMessages {
			fmt.Fprintf(&sb, "- %s\n", msg)
		}
	}

	if len(bundle.Changed) > 0 {
		sb.WriteString("\nDiff:\n")
		for _, c := range bundle.Changed {
			fmt.Fprintf(&sb, "--- %s (%s)\n", c.Path, c.Status)
			for _, h := range c.Hunks {
				fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n%s", h.OldStart, h.OldLines, h.NewStart, h.NewLines, h.Body)
			}
		}
	}

	if len(bundle.Files) > 0 {
		sb.WriteString("\nRepository context:\n")
		for _, f := range bundle.Files {
			fmt.Fprintf(&sb, "=== %s (%s) ===\n%s\n", f.Path, f.Reason, f.Content)
		}
	}

	if len(prior) > 0 {
		sb.WriteString("\nPreviously reported findings:\n")
		for _, f := range prior {
			loc := f.Path
			if f.Line > 0 {
				loc = fmt.Sprintf("%s:%d", f.Path, f.Line)
			}
			fmt.Fprintf(&sb, "- [%s/%s] %s: %s\n", f.Category, f.Severity, loc, f.Message)
		}
	}

	user = sb.String()
	return
}
