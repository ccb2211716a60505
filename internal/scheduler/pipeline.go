package scheduler

import (
	"context"

	"github.com/joescharf/junior/internal/analyzer"
	"github.com/joescharf/junior/internal/models"
	"github.com/joescharf/junior/internal/orchestrator"
	"github.com/joescharf/junior/internal/source"
)

// Pipeline is the production Runner: repository analysis followed by the
// staged review orchestration. The evidence bundle lives and dies inside
// one Run call.
type Pipeline struct {
	Analyzer     *analyzer.Analyzer
	Orchestrator *orchestrator.Orchestrator
	Provider     source.Provider
}

// Run builds the evidence bundle and runs it through the review stages.
func (p *Pipeline) Run(ctx context.Context, subject models.ReviewSubject, pr analyzer.PRInfo) (*models.ReviewResult, error) {
	bundle, err := p.Analyzer.Analyze(ctx, subject, pr, p.Provider)
	if err != nil {
		return nil, err
	}
	return p.Orchestrator.Run(ctx, bundle)
}
