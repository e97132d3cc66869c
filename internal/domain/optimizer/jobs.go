package optimizer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
)

// Job tracks one batch run.
type Job struct {
	ID         string    `json:"id"`
	Patterns   []string  `json:"patterns"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Status     JobStatus `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// JobTracker keeps batch jobs in memory for the stats/jobs endpoints.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewJobTracker() *JobTracker {
	return &JobTracker{jobs: make(map[string]*Job)}
}

func (t *JobTracker) Start(patterns []string, total int) *Job {
	job := &Job{
		ID:        uuid.NewString(),
		Patterns:  patterns,
		Total:     total,
		Status:    JobRunning,
		StartedAt: time.Now(),
	}
	t.mu.Lock()
	t.jobs[job.ID] = job
	t.mu.Unlock()
	return job
}

func (t *JobTracker) Complete(id string, succeeded, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	job.Succeeded = succeeded
	job.Failed = failed
	job.Status = JobCompleted
	job.FinishedAt = time.Now()
}

// Cancel marks an aborted run. Counts reflect only the items that finished
// before the abort, so a cancelled job stays distinguishable from an
// all-failure run.
func (t *JobTracker) Cancel(id string, succeeded, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	job.Succeeded = succeeded
	job.Failed = failed
	job.Status = JobCancelled
	job.FinishedAt = time.Now()
}

func (t *JobTracker) Get(id string) (*Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return nil, false
	}
	copied := *job
	return &copied, true
}

func (t *JobTracker) List() []*Job {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		copied := *job
		out = append(out, &copied)
	}
	return out
}
