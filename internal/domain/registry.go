package domain

// JobRegistry owns every job record for the lifetime of the process.
// Implementations must be safe for concurrent use and must never hold
// their lock across blocking I/O.
type JobRegistry interface {
	// Add inserts a new job and returns its id
	Add(job *Job) (string, error)

	// Get returns a snapshot of the job
	Get(id string) (Job, bool)

	// List returns snapshots of all jobs
	List() []Job

	// Mutate applies fn to the stored job in place.
	// Returns ErrJobNotFound if the id is absent.
	Mutate(id string, fn func(*Job)) error

	// RemoveWhere removes all jobs matching pred and returns how many went
	RemoveWhere(pred func(*Job) bool) int

	// Drain removes all jobs matching pred and returns snapshots of them
	Drain(pred func(*Job) bool) []Job
}

// HistoryRepository archives jobs that have left the registry
type HistoryRepository interface {
	// Archive stores a terminal job, replacing an earlier copy with the same id
	Archive(job Job) error

	// FindByID returns an archived job, or nil if it was never archived
	FindByID(id string) (*HistoryEntry, error)

	// FindRecent returns up to limit archived jobs, newest first
	FindRecent(limit int) ([]*HistoryEntry, error)

	// Count returns the number of archived jobs
	Count() (int64, error)
}
