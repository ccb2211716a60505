// Package scheduler enforces single-flight review execution per pull
// request: at most one running job per PR identity, at most one execution
// per distinct commit, cooperative cancellation when a newer commit
// supersedes a running review.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/junior/internal/analyzer"
	"github.com/joescharf/junior/internal/models"
	"github.com/joescharf/junior/internal/publisher"
)

var (
	errSuperseded = errors.New("superseded by newer commit")
	errJobTimeout = errors.New("job timed out")
)

// Runner executes one review job end to end: analysis through orchestration.
type Runner interface {
	Run(ctx context.Context, subject models.ReviewSubject, pr analyzer.PRInfo) (*models.ReviewResult, error)
}

// History records terminal outcomes and answers whether a commit was
// already reviewed. Optional; without it, completed-commit duplicates start
// a fresh review.
type History interface {
	LookupOutcome(ctx context.Context, subject models.ReviewSubject) (*models.Outcome, error)
	RecordOutcome(ctx context.Context, subject models.ReviewSubject, outcome models.Outcome) error
}

// DuplicatePolicy decides what happens when a new commit arrives for a PR
// with a running job.
type DuplicatePolicy string

const (
	// PolicySupersede cancels the running job and starts the new commit.
	PolicySupersede DuplicatePolicy = "supersede"
	// PolicyDrop keeps the running job and drops the new event.
	PolicyDrop DuplicatePolicy = "drop"
)

// CompletedPolicy decides what happens when an event arrives for a commit
// whose review already completed.
type CompletedPolicy string

const (
	// PolicyRepublish re-delivers the stored outcome to the publisher.
	PolicyRepublish CompletedPolicy = "republish"
	// PolicyIgnore silently drops the event.
	PolicyIgnore CompletedPolicy = "ignore"
)

// SubmitStatus reports how a submission was handled.
type SubmitStatus string

const (
	StatusStarted     SubmitStatus = "started"
	StatusDuplicate   SubmitStatus = "duplicate"   // same commit already in flight
	StatusDropped     SubmitStatus = "dropped"     // running job kept per policy
	StatusAlreadyDone SubmitStatus = "already_reviewed"
	StatusRepublished SubmitStatus = "republished"
)

// Config bounds scheduler behavior.
type Config struct {
	Concurrency int
	JobTimeout  time.Duration
	OnDuplicate DuplicatePolicy
	OnCompleted CompletedPolicy
}

// DefaultConfig returns the stock scheduling policy.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		JobTimeout:  10 * time.Minute,
		OnDuplicate: PolicySupersede,
		OnCompleted: PolicyIgnore,
	}
}

// Handle is the caller's view of one job. ID and Subject are stable;
// everything else is read through accessors.
type Handle struct {
	ID      string
	Subject models.ReviewSubject
	PR      analyzer.PRInfo

	cancel context.CancelCauseFunc
	done   chan struct{}

	mu      sync.Mutex
	state   models.JobState
	outcome models.Outcome
}

// Done is closed when the job reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// State returns the job's current lifecycle state.
func (h *Handle) State() models.JobState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Outcome returns the terminal outcome. Valid only after Done is closed.
func (h *Handle) Outcome() models.Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome
}

func (h *Handle) setState(state models.JobState) {
	h.mu.Lock()
	h.state = state
	h.mu.Unlock()
}

func (h *Handle) finish(state models.JobState, outcome models.Outcome) {
	h.mu.Lock()
	h.state = state
	h.outcome = outcome
	h.mu.Unlock()
	close(h.done)
}

// Scheduler owns the PR-identity → active job registry and the worker pool.
type Scheduler struct {
	runner    Runner
	publisher publisher.Publisher
	history   History // may be nil
	cfg       Config

	baseCtx context.Context
	stop    context.CancelFunc
	sem     chan struct{}
	wg      sync.WaitGroup

	// mu guards active across the whole decide-and-mutate step in Submit.
	mu     sync.Mutex
	active map[string]*Handle // PRKey → non-terminal job
}

// New creates a Scheduler. History may be nil to disable completed-commit
// deduplication.
func New(runner Runner, pub publisher.Publisher, history History, cfg Config) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	baseCtx, stop := context.WithCancel(context.Background())
	return &Scheduler{
		runner:    runner,
		publisher: pub,
		history:   history,
		cfg:       cfg,
		baseCtx:   baseCtx,
		stop:      stop,
		sem:       make(chan struct{}, cfg.Concurrency),
		active:    map[string]*Handle{},
	}
}

// Submit resolves an event into at most one job execution. Duplicate
// deliveries of a commit collapse onto the existing handle; a newer commit
// supersedes or is dropped per policy; commits already reviewed follow the
// completed-duplicate policy.
func (s *Scheduler) Submit(ctx context.Context, subject models.ReviewSubject, pr analyzer.PRInfo) (*Handle, SubmitStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.active[subject.PRKey()]; ok {
		if existing.Subject.HeadSHA == subject.HeadSHA {
			// Re-delivery of the same commit collapses to one execution.
			return existing, StatusDuplicate
		}
		if s.cfg.OnDuplicate == PolicyDrop {
			return existing, StatusDropped
		}
		slog.Info("superseding running review",
			"pr", subject.PRKey(),
			"old", existing.Subject.HeadSHA,
			"new", subject.HeadSHA)
		existing.cancel(errSuperseded)
	}

	if s.history != nil {
		if prior, err := s.history.LookupOutcome(ctx, subject); err == nil && prior != nil && prior.Kind == models.OutcomeCompleted {
			h := &Handle{ID: newJobID(), Subject: subject, PR: pr, done: make(chan struct{})}
			if s.cfg.OnCompleted == PolicyRepublish {
				h.finish(models.JobCompleted, *prior)
				s.republish(subject, *prior)
				return h, StatusRepublished
			}
			h.finish(models.JobCompleted, *prior)
			return h, StatusAlreadyDone
		}
	}

	jobCtx, cancel := context.WithCancelCause(s.baseCtx)
	h := &Handle{
		ID:      newJobID(),
		Subject: subject,
		PR:      pr,
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   models.JobQueued,
	}
	s.active[subject.PRKey()] = h

	s.wg.Add(1)
	go s.execute(jobCtx, h)
	return h, StatusStarted
}

// execute runs one job to its terminal state.
func (s *Scheduler) execute(ctx context.Context, h *Handle) {
	defer s.wg.Done()

	// Wait for a worker slot; cancellation while queued is still a clean
	// Cancelled outcome.
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		s.settle(h, ctx, nil, context.Cause(ctx))
		return
	}

	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, s.cfg.JobTimeout, errJobTimeout)
		defer cancel()
	}

	h.setState(models.JobRunning)
	slog.Info("review job started", "job", h.ID, "subject", h.Subject.String())

	result, err := s.runner.Run(ctx, h.Subject, h.PR)
	s.settle(h, ctx, result, err)
}

// settle classifies the run's end into exactly one terminal outcome,
// records it, and publishes it.
func (s *Scheduler) settle(h *Handle, ctx context.Context, result *models.ReviewResult, err error) {
	var state models.JobState
	var outcome models.Outcome

	cause := context.Cause(ctx)
	switch {
	case err == nil:
		state = models.JobCompleted
		outcome = models.Outcome{Kind: models.OutcomeCompleted, Result: result}
	case errors.Is(err, errSuperseded) || errors.Is(cause, errSuperseded):
		state = models.JobCancelled
		outcome = models.Outcome{Kind: models.OutcomeCancelled}
	case errors.Is(err, errJobTimeout) || errors.Is(cause, errJobTimeout):
		state = models.JobCancelled
		outcome = models.Outcome{Kind: models.OutcomeTimeout}
	case errors.Is(err, context.Canceled) || errors.Is(cause, context.Canceled):
		// Scheduler shutdown: cancelled without a superseding commit.
		state = models.JobCancelled
		outcome = models.Outcome{Kind: models.OutcomeCancelled}
	default:
		state = models.JobFailed
		outcome = models.Outcome{Kind: models.OutcomeFailed, Reason: err.Error()}
	}

	if s.history != nil {
		recCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.history.RecordOutcome(recCtx, h.Subject, outcome); err != nil {
			slog.Warn("record outcome failed", "job", h.ID, "error", err)
		}
		cancel()
	}

	// Publishing uses a fresh context: the job's own context is already
	// cancelled for Cancelled/Timeout outcomes, and the publisher must
	// still be informed.
	pubCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, h.Subject, outcome); err != nil {
		slog.Error("publish outcome failed", "job", h.ID, "subject", h.Subject.String(), "error", err)
	}

	slog.Info("review job finished", "job", h.ID, "subject", h.Subject.String(), "outcome", outcome.Kind)

	// Deregister before closing the handle so a waiter that sees Done() can
	// immediately submit the subject again.
	s.deregister(h)
	h.finish(state, outcome)
}

func (s *Scheduler) republish(subject models.ReviewSubject, outcome models.Outcome) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.publisher.Publish(ctx, subject, outcome); err != nil {
			slog.Error("republish failed", "subject", subject.String(), "error", err)
		}
	}()
}

// deregister removes h from the registry unless a superseding job already
// replaced it.
func (s *Scheduler) deregister(h *Handle) {
	s.mu.Lock()
	if s.active[h.Subject.PRKey()] == h {
		delete(s.active, h.Subject.PRKey())
	}
	s.mu.Unlock()
}

// ActiveJobs returns the number of non-terminal jobs.
func (s *Scheduler) ActiveJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Close cancels all running jobs and waits for them to settle.
func (s *Scheduler) Close() {
	s.stop()
	s.wg.Wait()
}

func newJobID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
