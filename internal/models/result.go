package models

import "time"

// Recommendation is the overall review verdict.
type Recommendation string

const (
	RecommendApprove        Recommendation = "approve"
	RecommendComment        Recommendation = "comment"
	RecommendRequestChanges Recommendation = "request_changes"
)

// StageFailure records one review stage that errored or timed out. The
// pipeline continues past it; partial results beat none.
type StageFailure struct {
	Category Category `json:"category"`
	Reason   string   `json:"reason"`
}

// ReviewResult aggregates all findings for one subject. It is created empty
// at orchestration start, appended to by each stage, and finalized once all
// stages complete.
type ReviewResult struct {
	Subject        ReviewSubject      `json:"subject"`
	Findings       []Finding          `json:"findings"`
	StageFailures  []StageFailure     `json:"stage_failures,omitempty"`
	Recommendation Recommendation     `json:"recommendation"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
}

// Histogram returns the count of findings at each severity.
func (r *ReviewResult) Histogram() map[Severity]int {
	h := make(map[Severity]int)
	for _, f := range r.Findings {
		h[f.Severity]++
	}
	return h
}
