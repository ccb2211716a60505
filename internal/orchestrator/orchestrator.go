// Package orchestrator runs the ordered review pipeline: one stage per
// category, each delegated to the review engine. Its job is composition and
// resilience, not producing findings.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/joescharf/junior/internal/engine"
	"github.com/joescharf/junior/internal/models"
)

// Config controls stage selection, stage budgets, and result policy.
type Config struct {
	// Disabled stages are skipped, not failed.
	Disabled map[models.Category]bool
	// StageTimeout bounds one engine call. 0 = no per-stage bound.
	StageTimeout time.Duration
	// SimilarityThreshold is the minimum message similarity (0..1) for two
	// co-located findings of the same category to merge as duplicates.
	SimilarityThreshold float64
	// HighCountThreshold: more than this many high-severity findings forces
	// request-changes even without a critical one.
	HighCountThreshold int
}

// DefaultConfig returns the stock pipeline policy: all stages on.
func DefaultConfig() Config {
	return Config{
		Disabled:            map[models.Category]bool{},
		StageTimeout:        90 * time.Second,
		SimilarityThreshold: 0.6,
		HighCountThreshold:  2,
	}
}

// Orchestrator executes review stages sequentially against one bundle.
type Orchestrator struct {
	engine engine.Engine
	cfg    Config
}

// New creates an Orchestrator backed by the given engine.
func New(eng engine.Engine, cfg Config) *Orchestrator {
	return &Orchestrator{engine: eng, cfg: cfg}
}

// Run executes the enabled stages in declared order. Later stages see the
// running finding list from earlier stages. A failed stage is recorded and
// the pipeline continues; only cancellation of ctx aborts the run, in which
// case the partial result is discarded by the caller.
func (o *Orchestrator) Run(ctx context.Context, bundle *models.EvidenceBundle) (*models.ReviewResult, error) {
	result := &models.ReviewResult{
		Subject:   bundle.Subject,
		StartedAt: time.Now().UTC(),
	}

	for _, category := range models.Categories() {
		if o.cfg.Disabled[category] {
			continue
		}
		// Cancellation is observed between stages as well as inside the
		// engine call.
		if err := ctx.Err(); err != nil {
			return nil, context.Cause(ctx)
		}

		findings, err := o.runStage(ctx, category, bundle, result.Findings)
		if err != nil {
			if ctx.Err() != nil {
				return nil, context.Cause(ctx)
			}
			slog.Warn("review stage failed",
				"subject", bundle.Subject.String(),
				"category", category,
				"error", err)
			result.StageFailures = append(result.StageFailures, models.StageFailure{
				Category: category,
				Reason:   err.Error(),
			})
			continue
		}
		result.Findings = append(result.Findings, findings...)
	}

	result.Findings = Dedupe(result.Findings, o.cfg.SimilarityThreshold)
	result.Recommendation = Recommend(result.Findings, o.cfg.HighCountThreshold)
	result.FinishedAt = time.Now().UTC()
	return result, nil
}

func (o *Orchestrator) runStage(ctx context.Context, category models.Category, bundle *models.EvidenceBundle, prior []models.Finding) ([]models.Finding, error) {
	if o.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.StageTimeout)
		defer cancel()
	}
	return o.engine.Evaluate(ctx, category, bundle, prior)
}

// Recommend computes the overall recommendation from the finding set: any
// critical forces request-changes, too many highs force request-changes,
// anything at all is worth a comment, and a clean set approves.
func Recommend(findings []models.Finding, highCountThreshold int) models.Recommendation {
	highs := 0
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityCritical:
			return models.RecommendRequestChanges
		case models.SeverityHigh:
			highs++
		}
	}
	if highs > highCountThreshold {
		return models.RecommendRequestChanges
	}
	if len(findings) > 0 {
		return models.RecommendComment
	}
	return models.RecommendApprove
}
