package store

import (
	"context"
	"time"

	"github.com/joescharf/junior/internal/models"
)

// ReviewRecord is one persisted terminal outcome.
type ReviewRecord struct {
	ID             string
	Host           string
	Repo           string
	Number         int
	HeadSHA        string
	Outcome        models.OutcomeKind
	Recommendation models.Recommendation
	FindingCount   int
	Reason         string
	Result         *models.ReviewResult // nil for non-completed outcomes
	CreatedAt      time.Time
}

// Subject reconstructs the record's review subject.
func (r *ReviewRecord) Subject() models.ReviewSubject {
	return models.ReviewSubject{Host: r.Host, Repo: r.Repo, Number: r.Number, HeadSHA: r.HeadSHA}
}

// Store persists review history. It backs the completed-commit duplicate
// policy, the history command, and the MCP tools.
type Store interface {
	RecordOutcome(ctx context.Context, subject models.ReviewSubject, outcome models.Outcome) error
	LookupOutcome(ctx context.Context, subject models.ReviewSubject) (*models.Outcome, error)
	ListReviews(ctx context.Context, repo string, limit int) ([]*ReviewRecord, error)
	GetReview(ctx context.Context, id string) (*ReviewRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
