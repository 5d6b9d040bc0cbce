// Package scan owns the duplicate-scan job lifecycle: the in-memory job
// registry the HTTP surface polls, and the background worker that walks the
// student index and persists detected groups.
package scan

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"scolaris/internal/dedup/models"
	"scolaris/pkg/domain"
)

// Job is one scan's mutable state. The worker is the only writer of the
// counters and buffer; handlers read snapshots and flip the stop flag.
type Job struct {
	id        domain.JobID
	startedAt time.Time
	stop      atomic.Bool

	mu       sync.Mutex
	status   models.JobStatus
	total    int
	current  int
	found    int
	progress float64
	errMsg   string
	buffer   []models.GroupSnapshot
}

// ID returns the job identifier.
func (j *Job) ID() domain.JobID { return j.id }

// RequestStop flips the cooperative stop flag. The worker observes it between
// records and at batch boundaries.
func (j *Job) RequestStop() { j.stop.Store(true) }

func (j *Job) stopRequested() bool { return j.stop.Load() }

// Snapshot copies the job state for the status endpoint.
func (j *Job) Snapshot() models.JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := models.JobSnapshot{
		ID:       j.id,
		Status:   j.status,
		Progress: j.progress,
		Total:    j.total,
		Current:  j.current,
		Found:    j.found,
		Error:    j.errMsg,
	}
	snap.Groups = append(snap.Groups, j.buffer...)
	return snap
}

func (j *Job) markProcessing(total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = models.JobProcessing
	j.total = total
}

// refreshProgress recomputes the percentage at the current index, rounded to
// two decimals.
func (j *Job) refreshProgress(current int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.current = current
	if j.total > 0 {
		j.progress = math.Round(float64(current)/float64(j.total)*10000) / 100
	}
}

// recordFound appends a group snapshot to the rolling buffer and bumps the
// found counter.
func (j *Job) recordFound(snap models.GroupSnapshot) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.found++
	j.buffer = append(j.buffer, snap)
}

// clearBuffer drops the rolling buffer. Called only right after the batch
// holding those groups committed, so the UI never loses an undurable group.
func (j *Job) clearBuffer() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.buffer = nil
}

func (j *Job) finish(status models.JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	if status == models.JobCompleted {
		j.current = j.total
		j.progress = 100
	}
}

func (j *Job) fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = models.JobFailed
	j.errMsg = err.Error()
}

// Registry is the process-wide map of live scan jobs.
type Registry struct {
	mu   sync.Mutex
	jobs map[domain.JobID]*Job
	ttl  time.Duration
	now  func() time.Time
}

// NewRegistry constructs a registry whose janitor evicts jobs older than ttl.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Registry{
		jobs: make(map[domain.JobID]*Job),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Create registers a fresh pending job. The janitor runs first so abandoned
// terminal jobs do not accumulate across scans.
func (r *Registry) Create() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictStaleLocked()

	job := &Job{
		id:        domain.JobID(uuid.NewString()),
		startedAt: r.now(),
		status:    models.JobPending,
	}
	r.jobs[job.id] = job
	return job
}

// Find returns the job or nil when the id is unknown or already evicted.
func (r *Registry) Find(id domain.JobID) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id]
}

func (r *Registry) evictStaleLocked() {
	cutoff := r.now().Add(-r.ttl)
	for id, job := range r.jobs {
		if job.startedAt.Before(cutoff) {
			delete(r.jobs, id)
		}
	}
}
