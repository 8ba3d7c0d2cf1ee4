package infrastructure

import (
	"fmt"
	"sort"
	"sync"

	"github.com/yourusername/sldl-jobs/internal/domain"
)

// MemoryJobRegistry implements JobRegistry with a mutex-guarded map.
// Contents are lost on restart.
type MemoryJobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewMemoryJobRegistry creates an empty registry
func NewMemoryJobRegistry() *MemoryJobRegistry {
	return &MemoryJobRegistry{jobs: make(map[string]*domain.Job)}
}

// Add inserts a new job
func (r *MemoryJobRegistry) Add(job *domain.Job) (string, error) {
	if job == nil || job.ID == "" {
		return "", fmt.Errorf("job must have an id")
	}
	stored := job.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return "", fmt.Errorf("%w: %s", domain.ErrJobExists, job.ID)
	}
	r.jobs[job.ID] = &stored
	return job.ID, nil
}

// Get returns a snapshot of the job
func (r *MemoryJobRegistry) Get(id string) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return job.Clone(), true
}

// List returns snapshots of all jobs ordered by start time
func (r *MemoryJobRegistry) List() []domain.Job {
	r.mu.RLock()
	jobs := make([]domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(i, k int) bool {
		if jobs[i].StartedAt.Equal(jobs[k].StartedAt) {
			return jobs[i].ID < jobs[k].ID
		}
		return jobs[i].StartedAt.Before(jobs[k].StartedAt)
	})
	return jobs
}

// Mutate applies fn to the stored job while holding the lock
func (r *MemoryJobRegistry) Mutate(id string, fn func(*domain.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	fn(job)
	return nil
}

// RemoveWhere removes all matching jobs and returns the count
func (r *MemoryJobRegistry) RemoveWhere(pred func(*domain.Job) bool) int {
	return len(r.Drain(pred))
}

// Drain removes all matching jobs and returns them
func (r *MemoryJobRegistry) Drain(pred func(*domain.Job) bool) []domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []domain.Job
	for id, job := range r.jobs {
		if pred(job) {
			removed = append(removed, *job)
			delete(r.jobs, id)
		}
	}
	return removed
}

// Len returns the number of registered jobs
func (r *MemoryJobRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
