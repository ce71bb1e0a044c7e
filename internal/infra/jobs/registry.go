// Package jobs tracks the computational jobs whose completion the upgrade
// scheduler waits for. Jobs are reported by the serving layer over the API;
// the registry only counts them and signals completions.
package jobs

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Job is one in-flight unit of work registered against the node.
type Job struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// Registry is an in-memory job tracker. It satisfies domain.JobRegistry:
// ActiveJobCount for polling and Completions for event-driven wakeups.
type Registry struct {
	mu     sync.Mutex
	active map[string]Job
	starts uint64 // monotone count of successful Starts

	// completions is buffered so job completion never blocks on a slow
	// scheduler; a dropped signal is recovered by the next poll tick.
	completions chan string

	// Injectable clock
	now func() time.Time
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{
		active:      make(map[string]Job),
		completions: make(chan string, 64),
		now:         time.Now,
	}
}

// Start registers a job as active. Duplicate IDs are rejected so a retried
// start cannot double-count.
func (r *Registry) Start(id, kind string) (Job, error) {
	if id == "" {
		return Job{}, fmt.Errorf("job id cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[id]; ok {
		return Job{}, fmt.Errorf("job %q is already active", id)
	}
	j := Job{ID: id, Kind: kind, StartedAt: r.now()}
	r.active[id] = j
	r.starts++
	return j, nil
}

// Complete removes a job and signals the completion channel.
func (r *Registry) Complete(id string) error {
	r.mu.Lock()
	j, ok := r.active[id]
	if ok {
		delete(r.active, id)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("job %q is not active", id)
	}

	select {
	case r.completions <- id:
	default:
		log.Printf("[jobs] completion signal dropped for %s (buffer full)", j.ID)
	}
	return nil
}

// ActiveJobCount returns the number of in-flight jobs.
func (r *Registry) ActiveJobCount() uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uint(len(r.active))
}

// Completions returns the channel signalled on every job completion.
func (r *Registry) Completions() <-chan string {
	return r.completions
}

// Starts returns the monotone count of jobs ever started.
func (r *Registry) Starts() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

// Active returns a snapshot of the in-flight jobs.
func (r *Registry) Active() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Job, 0, len(r.active))
	for _, j := range r.active {
		out = append(out, j)
	}
	return out
}
