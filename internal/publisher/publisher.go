// Package publisher delivers terminal review outcomes. The GitHub
// implementation posts a PR review with inline comments through the gh CLI;
// the log publisher is for dry runs and tests.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/joescharf/junior/internal/models"
	"github.com/joescharf/junior/internal/selector"
)

// Publisher receives exactly one terminal outcome per started commit.
type Publisher interface {
	Publish(ctx context.Context, subject models.ReviewSubject, outcome models.Outcome) error
}

// Log is a Publisher that only logs outcomes. Used with --dry-run.
type Log struct{}

// Publish logs the outcome and returns nil.
func (Log) Publish(_ context.Context, subject models.ReviewSubject, outcome models.Outcome) error {
	attrs := []any{"subject", subject.String(), "outcome", outcome.Kind}
	if outcome.Result != nil {
		attrs = append(attrs, "findings", len(outcome.Result.Findings), "recommendation", outcome.Result.Recommendation)
	}
	if outcome.Reason != "" {
		attrs = append(attrs, "reason", outcome.Reason)
	}
	slog.Info("review outcome", attrs...)
	return nil
}

// GitHub posts review outcomes back to the pull request via the gh CLI.
type GitHub struct {
	// MaxComments caps inline comments per review.
	MaxComments int
}

// NewGitHub returns a GitHub publisher with the given inline-comment cap.
func NewGitHub(maxComments int) *GitHub {
	if maxComments <= 0 {
		maxComments = selector.DefaultMaxComments
	}
	return &GitHub{MaxComments: maxComments}
}

func ghAPI(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	cmd := exec.CommandContext(ctx, "gh", "api", "-X", "POST", path, "--input", "-")
	cmd.Stdin = bytes.NewReader(body)
	if _, err := cmd.Output(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("gh api %s: %s", path, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return fmt.Errorf("gh api %s: %w", path, err)
	}
	return nil
}

// reviewEvent maps a recommendation to the GitHub review event name.
func reviewEvent(rec models.Recommendation) string {
	switch rec {
	case models.RecommendApprove:
		return "APPROVE"
	case models.RecommendRequestChanges:
		return "REQUEST_CHANGES"
	default:
		return "COMMENT"
	}
}

// Publish posts a full review for completed outcomes and a short
// explanatory comment for failures and timeouts. Cancelled outcomes are
// logged only: the superseding commit's review is on its way.
func (g *GitHub) Publish(ctx context.Context, subject models.ReviewSubject, outcome models.Outcome) error {
	switch outcome.Kind {
	case models.OutcomeCompleted:
		return g.publishReview(ctx, subject, outcome.Result)
	case models.OutcomeCancelled:
		slog.Info("review superseded, nothing published", "subject", subject.String())
		return nil
	case models.OutcomeTimeout:
		return g.publishComment(ctx, subject, "Automated review timed out before completing. A partial review was discarded; push a new commit to retry.")
	default:
		msg := "Automated review failed."
		if outcome.Reason != "" {
			msg = fmt.Sprintf("Automated review failed: %s", outcome.Reason)
		}
		return g.publishComment(ctx, subject, msg)
	}
}

func (g *GitHub) publishReview(ctx context.Context, subject models.ReviewSubject, result *models.ReviewResult) error {
	sel := selector.Select(result, g.MaxComments)

	type ghComment struct {
		Path      string `json:"path"`
		Line      int    `json:"line"`
		StartLine int    `json:"start_line,omitempty"`
		Side      string `json:"side"`
		Body      string `json:"body"`
	}
	comments := make([]ghComment, 0, len(sel.Inline))
	for _, c := range sel.Inline {
		gc := ghComment{Path: c.Path, Line: c.Line, Side: "RIGHT", Body: c.Body}
		if c.EndLine > c.Line {
			gc.StartLine = c.Line
			gc.Line = c.EndLine
		}
		comments = append(comments, gc)
	}

	payload := map[string]any{
		"commit_id": subject.HeadSHA,
		"event":     reviewEvent(result.Recommendation),
		"body":      sel.Summary,
		"comments":  comments,
	}
	path := fmt.Sprintf("repos/%s/pulls/%d/reviews", subject.Repo, subject.Number)
	if err := ghAPI(ctx, path, payload); err != nil {
		return err
	}
	slog.Info("review published",
		"subject", subject.String(),
		"event", reviewEvent(result.Recommendation),
		"inline", len(comments),
		"total", sel.TotalFindings)
	return nil
}

func (g *GitHub) publishComment(ctx context.Context, subject models.ReviewSubject, body string) error {
	path := fmt.Sprintf("repos/%s/issues/%d/comments", subject.Repo, subject.Number)
	return ghAPI(ctx, path, map[string]any{"body": body})
}
