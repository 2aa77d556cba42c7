package integration

import (
	"context"
	"sync"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// JobRegistry tracks running bulk jobs and their cancellation tokens.
// It is owned by the service instance and process-local: a cancellation
// flag does not survive a restart, and a job running in another process
// cannot be canceled from here.
type JobRegistry struct {
	mu   sync.Mutex
	jobs map[string]context.CancelFunc
}

// NewJobRegistry creates a new JobRegistry
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]context.CancelFunc)}
}

// Register derives a cancellable context for the job. It fails with
// ErrAlreadyExists when a job with the same id is running.
func (r *JobRegistry) Register(parent context.Context, jobID string) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, running := r.jobs[jobID]; running {
		return nil, shared.ErrAlreadyExists
	}
	ctx, cancel := context.WithCancel(parent)
	r.jobs[jobID] = cancel
	return ctx, nil
}

// Cancel requests cooperative cancellation of a running job. Returns
// false when the job is not known to this process.
func (r *JobRegistry) Cancel(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.jobs[jobID]
	if !ok {
		return false
	}
	cancel()
	return true
}

// Finish releases the job's registration. Safe to call for unknown ids.
func (r *JobRegistry) Finish(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.jobs[jobID]; ok {
		cancel()
		delete(r.jobs, jobID)
	}
}

// Running returns the ids of jobs currently registered.
func (r *JobRegistry) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.jobs))
	for id := range r.jobs {
		ids = append(ids, id)
	}
	return ids
}
