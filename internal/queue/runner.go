package queue

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"scribe/internal/domain"
)

// Executor runs one job through the full pipeline. Implementations record
// progress and outcomes on the repository themselves; Execute never returns
// an error because a failed run is a normal terminal state for the job.
type Executor interface {
	Execute(ctx context.Context, job domain.Job)
}

// Runner drains queued jobs one at a time in insertion order. At most one
// drain loop is active at any moment, which is what serializes pipeline runs.
type Runner struct {
	repo      *Repository
	executor  Executor
	preflight func() error
	log       *logrus.Logger

	mu       sync.Mutex
	draining bool
}

// NewRunner creates a runner over the given repository and executor. The
// preflight hook runs before each drain starts; a non-nil preflight error
// (typically a missing API credential) blocks the drain entirely and leaves
// every job queued.
func NewRunner(repo *Repository, executor Executor, preflight func() error, log *logrus.Logger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		repo:      repo,
		executor:  executor,
		preflight: preflight,
		log:       log,
	}
}

// Start launches a drain loop in the background. It is the wake-up signal
// called after every append and re-queue, and it is idempotent: if a drain
// is already active the call does nothing and the active loop picks up the
// new work on its next iteration.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		return nil
	}
	if err := r.check(); err != nil {
		r.mu.Unlock()
		return err
	}
	r.draining = true
	r.mu.Unlock()

	go r.drain(ctx)
	return nil
}

// Drain processes queued jobs on the calling goroutine until none remain.
// It returns immediately if another drain is already active.
func (r *Runner) Drain(ctx context.Context) error {
	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		return nil
	}
	if err := r.check(); err != nil {
		r.mu.Unlock()
		return err
	}
	r.draining = true
	r.mu.Unlock()

	r.drain(ctx)
	return nil
}

// Draining reports whether a drain loop is currently active.
func (r *Runner) Draining() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draining
}

// drain runs jobs until the queue is empty. Before clearing the draining
// flag it re-checks the queue under the runner lock, so a job appended in
// the window after the last empty poll is never stranded.
func (r *Runner) drain(ctx context.Context) {
	for {
		for {
			job, ok := r.repo.FirstQueued()
			if !ok {
				break
			}
			r.log.WithField("job_id", job.ID).Info("starting pipeline run")
			r.executor.Execute(ctx, job)
		}

		r.mu.Lock()
		if _, ok := r.repo.FirstQueued(); ok {
			r.mu.Unlock()
			continue
		}
		r.draining = false
		r.mu.Unlock()
		return
	}
}

// check runs the preflight hook if one is configured.
func (r *Runner) check() error {
	if r.preflight == nil {
		return nil
	}
	return r.preflight()
}
