package queue

import (
	"errors"
	"sync"

	"scribe/internal/domain"
)

var (
	// ErrJobNotFound indicates the referenced job id is not in the repository.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobActive indicates the job is queued or mid-pipeline and cannot be re-queued.
	ErrJobActive = errors.New("job has not finished")
)

// Patch holds optional field updates merged into one job record.
// Nil fields are left untouched.
type Patch struct {
	Status       *domain.JobStatus
	Progress     *int
	Error        *string
	OutputPath   *string
	TranscriptID *string
	HistoryID    *string
}

// Repository is the mutex-guarded, insertion-ordered collection of job records.
type Repository struct {
	mu   sync.RWMutex
	jobs []domain.Job
}

// NewRepository creates an empty job repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Append adds job records to the end of the queue.
func (r *Repository) Append(jobs ...domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, jobs...)
}

// Patch merges the non-nil fields of p into the job with the given id.
// Patching an unknown id is a no-op, so a pipeline can keep reporting on a
// job the user already removed. Progress never moves backwards here; only
// Requeue resets it.
func (r *Repository) Patch(id string, p Patch) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return
	}

	job := &r.jobs[i]
	if p.Status != nil {
		job.Status = *p.Status
	}
	if p.Progress != nil && *p.Progress > job.Progress {
		job.Progress = *p.Progress
	}
	if p.Error != nil {
		job.Error = *p.Error
	}
	if p.OutputPath != nil {
		job.OutputPath = *p.OutputPath
	}
	if p.TranscriptID != nil {
		job.TranscriptID = *p.TranscriptID
	}
	if p.HistoryID != nil {
		job.HistoryID = *p.HistoryID
	}
}

// Remove deletes the job with the given id and reports whether it existed.
func (r *Repository) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return false
	}
	r.jobs = append(r.jobs[:i], r.jobs[i+1:]...)
	return true
}

// Get returns a copy of the job with the given id.
func (r *Repository) Get(id string) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return domain.Job{}, false
	}
	return r.jobs[i], true
}

// List returns a snapshot of all jobs in insertion order.
func (r *Repository) List() []domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

// FirstQueued returns the oldest job still waiting to run.
func (r *Repository) FirstQueued() (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, job := range r.jobs {
		if job.Status == domain.JobStatusQueued {
			return job, true
		}
	}
	return domain.Job{}, false
}

// Requeue resets a finished job for another full pipeline run and moves it to
// the back of the queue. Status returns to queued, progress to zero, and any
// previous error, output, and history references are cleared. A non-nil
// options value replaces the job's option snapshot.
func (r *Repository) Requeue(id string, options *domain.TranscriptionOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return ErrJobNotFound
	}
	if !r.jobs[i].Status.IsTerminal() {
		return ErrJobActive
	}

	job := r.jobs[i]
	job.Status = domain.JobStatusQueued
	job.Progress = 0
	job.Error = ""
	job.OutputPath = ""
	job.TranscriptID = ""
	job.HistoryID = ""
	if options != nil {
		job.Options = *options
	}

	r.jobs = append(r.jobs[:i], r.jobs[i+1:]...)
	r.jobs = append(r.jobs, job)
	return nil
}

// indexOf returns the position of a job id, or -1. Callers hold the lock.
func (r *Repository) indexOf(id string) int {
	for i := range r.jobs {
		if r.jobs[i].ID == id {
			return i
		}
	}
	return -1
}
