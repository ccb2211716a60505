package models

// JobState is the lifecycle state of a review job.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// Terminal reports whether the state is final.
func (s JobState) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// OutcomeKind classifies a job's terminal outcome as seen by the publisher.
// Cancelled (internally superseded) is distinct from Timeout (operator
// visible) even though both end the job the same way.
type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeCancelled OutcomeKind = "cancelled"
	OutcomeTimeout   OutcomeKind = "timeout"
)

// Outcome is the single terminal result delivered for a started commit.
type Outcome struct {
	Kind   OutcomeKind   `json:"kind"`
	Result *ReviewResult `json:"result,omitempty"` // set when Kind == OutcomeCompleted
	Reason string        `json:"reason,omitempty"` // set when Kind == OutcomeFailed
}
