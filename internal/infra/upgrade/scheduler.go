// Package upgrade implements job-aware upgrade coordination: a scheduler
// that delays implementation swaps until no computational jobs are active
// (or a maximum delay forces the issue), and an executor that performs the
// swap atomically with a post-swap sanity check and rollback.
package upgrade

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agora-network/agora/internal/domain"
	"github.com/agora-network/agora/internal/infra/metrics"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config configures the scheduler.
type Config struct {
	PollInterval      time.Duration // tick between evaluations (default 5s)
	DefaultGrace      time.Duration // required continuous zero-job streak (default 1m)
	DefaultMaxDelay   time.Duration // liveness bound before forcing (default 24h)
	MaxForcedAttempts int           // forced executor failures before Stalled (default 3)
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:      5 * time.Second,
		DefaultGrace:      time.Minute,
		DefaultMaxDelay:   24 * time.Hour,
		MaxForcedAttempts: 3,
	}
}

// ─── Collaborator Seams ─────────────────────────────────────────────────────

// Applier performs the actual implementation swap for a Ready request.
type Applier interface {
	Apply(target, newImplementationID string) error
}

// Gate is the system-wide pause check (see the breaker package).
type Gate interface {
	Allow() error
}

// FailureReporter receives executor failures so repeated broken upgrades
// trip the circuit breaker. The breaker's controller satisfies both this
// and Gate; a gate that implements it is picked up automatically.
type FailureReporter interface {
	RecordFailure() bool
}

// Store persists upgrade requests across restarts.
type Store interface {
	SaveUpgradeRequest(r domain.UpgradeRequest) error
}

// ─── Scheduler ──────────────────────────────────────────────────────────────

// Scheduler reconciles upgrade deadlines against the live job count.
// The decision per request, on every tick or job-completion event:
//
//  1. already forced → Ready
//  2. max_delay exceeded → forced, Ready (liveness under permanent job pressure)
//  3. jobs at zero continuously for grace_period → Ready (safety)
//  4. otherwise keep Waiting
//
// The Run loop is the only blocking component in the subsystem and is
// cancellable so a withdrawn request never deadlocks the poller.
type Scheduler struct {
	mu       sync.Mutex
	config   Config
	jobs     domain.JobRegistry
	applier  Applier
	gate     Gate
	reporter FailureReporter
	sink     domain.EventSink
	store    Store
	requests map[string]*domain.UpgradeRequest

	// zeroSince is the start of the current continuous zero-job streak
	// (zero value = jobs are currently active). Shared across requests:
	// the job registry is global, the streak is too.
	zeroSince time.Time

	// lastStarts is the registry's start count at the previous evaluation.
	// A job that starts and finishes entirely between two ticks still
	// advances it, so sub-interval jobs cannot slip past the streak.
	lastStarts uint64

	// now is injectable for testing.
	now func() time.Time
}

// NewScheduler creates a job-aware upgrade scheduler.
func NewScheduler(cfg Config, jobs domain.JobRegistry, applier Applier, gate Gate, sink domain.EventSink, store Store) *Scheduler {
	if sink == nil {
		sink = domain.NopSink{}
	}
	s := &Scheduler{
		config:   cfg,
		jobs:     jobs,
		applier:  applier,
		gate:     gate,
		sink:     sink,
		store:    store,
		requests: make(map[string]*domain.UpgradeRequest),
		now:      time.Now,
	}
	if r, ok := gate.(FailureReporter); ok {
		s.reporter = r
	}
	return s
}

// ─── Intake ─────────────────────────────────────────────────────────────────

// Submit accepts an upgrade request from an executed Upgrade-kind proposal.
// Zero grace/maxDelay fall back to the configured defaults.
func (s *Scheduler) Submit(proposalID, target, newImplementationID string, grace, maxDelay time.Duration) (*domain.UpgradeRequest, error) {
	return s.submit(proposalID, target, newImplementationID, grace, maxDelay, false)
}

// SubmitForced accepts an emergency fast-path request that skips the
// job-drain wait entirely. Callers must have verified council authorization.
func (s *Scheduler) SubmitForced(target, newImplementationID string) (*domain.UpgradeRequest, error) {
	return s.submit("", target, newImplementationID, 0, 0, true)
}

func (s *Scheduler) submit(proposalID, target, implID string, grace, maxDelay time.Duration, forced bool) (*domain.UpgradeRequest, error) {
	if target == "" || implID == "" {
		return nil, fmt.Errorf("upgrade submit: target and implementation id are required")
	}
	if grace <= 0 {
		grace = s.config.DefaultGrace
	}
	if maxDelay <= 0 {
		maxDelay = s.config.DefaultMaxDelay
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	r := &domain.UpgradeRequest{
		ID:                  "upg-" + uuid.New().String()[:8],
		ProposalID:          proposalID,
		Target:              target,
		NewImplementationID: implID,
		Phase:               domain.PhaseRequested,
		RequestedAt:         now,
		GracePeriod:         grace,
		MaxDelay:            maxDelay,
		Forced:              forced,
	}
	s.requests[r.ID] = r
	s.persistLocked(r)

	s.sink.Emit(domain.Event{
		Type: domain.EventUpgradeRequested, At: now,
		Subject: r.ID, Detail: fmt.Sprintf("target=%s impl=%s forced=%t", target, implID, forced),
	})
	snapshot := *r
	return &snapshot, nil
}

// SetMaxForcedAttempts retunes the stall bound, e.g. after a governance
// vote changes the parameter. Non-positive values are ignored.
func (s *Scheduler) SetMaxForcedAttempts(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.MaxForcedAttempts = n
}

// Load seeds the scheduler with persisted requests at startup. Pending ones
// rejoin the evaluation loop on the next tick; terminal ones are kept for
// the audit surface only.
func (s *Scheduler) Load(requests []domain.UpgradeRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range requests {
		snapshot := r
		s.requests[r.ID] = &snapshot
	}
}

// Withdraw cancels a request that has not been handed to the executor yet,
// e.g. when the originating proposal is invalidated.
func (s *Scheduler) Withdraw(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return domain.ErrUpgradeNotFound
	}
	if r.Phase != domain.PhaseRequested && r.Phase != domain.PhaseWaiting {
		return domain.ErrUpgradeNotWithdrawable
	}

	r.Phase = domain.PhaseWithdrawn
	s.persistLocked(r)
	s.sink.Emit(domain.Event{Type: domain.EventUpgradeWithdrawn, At: s.now(), Subject: r.ID})
	return nil
}

// ─── Polling Loop ───────────────────────────────────────────────────────────

// Run evaluates pending requests on every poll tick and on every
// job-completion event until ctx is cancelled. Call in a goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	var completions <-chan string
	if s.jobs != nil {
		completions = s.jobs.Completions()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		case _, ok := <-completions:
			if !ok {
				completions = nil
				continue
			}
			s.Tick()
		}
	}
}

// Tick runs one evaluation pass. Exported so tests (and the daemon on
// demand) can drive the scheduler without real time.
func (s *Scheduler) Tick() {
	// While the system is paused no upgrade may be applied, but the
	// zero-streak bookkeeping keeps running so time spent paused still
	// counts toward job-drain safety.
	paused := false
	if s.gate != nil && s.gate.Allow() != nil {
		paused = true
	}

	now := s.now()
	ready := s.evaluate(now, paused)

	for _, r := range ready {
		s.dispatch(r, now)
	}
}

// evaluate updates the zero-streak and advances request phases, returning
// snapshots of the requests that became Ready.
func (s *Scheduler) evaluate(now time.Time, paused bool) []domain.UpgradeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Point-in-time snapshot of an eventually-consistent counter; the
	// grace-period streak below absorbs its staleness.
	active := uint(0)
	starts := uint64(0)
	if s.jobs != nil {
		active = s.jobs.ActiveJobCount()
		starts = s.jobs.Starts()
	}
	switch {
	case active > 0:
		s.zeroSince = time.Time{}
	case starts != s.lastStarts:
		// A job ran to completion entirely between observations; the
		// streak restarts rather than silently surviving it.
		s.zeroSince = now
	case s.zeroSince.IsZero():
		s.zeroSince = now
	}
	s.lastStarts = starts

	var ready []domain.UpgradeRequest
	for _, r := range s.requests {
		switch r.Phase {
		// Ready is re-evaluated: a request that became Ready while the
		// system was paused must be dispatched on a later tick, and a
		// non-forced one is demoted again if jobs reappeared meanwhile.
		case domain.PhaseRequested, domain.PhaseWaiting, domain.PhaseReady:
		default:
			continue
		}

		switch {
		case r.Forced:
			r.Phase = domain.PhaseReady
		case now.Sub(r.RequestedAt) >= r.MaxDelay:
			r.Forced = true
			r.Phase = domain.PhaseReady
			// The stall bound counts failures from the moment of forcing;
			// retries burned while still waiting on jobs don't count.
			r.Attempts = 0
			log.Printf("[upgrade] request %s exceeded max delay with %d active jobs — forcing", r.ID, active)
			s.sink.Emit(domain.Event{
				Type: domain.EventUpgradeForced, At: now,
				Subject: r.ID, Detail: fmt.Sprintf("active_jobs=%d", active),
			})
		case !s.zeroSince.IsZero() && now.Sub(s.zeroSince) >= r.GracePeriod:
			r.Phase = domain.PhaseReady
		default:
			r.Phase = domain.PhaseWaiting
		}

		if r.Phase == domain.PhaseReady {
			s.persistLocked(r)
			if !paused {
				ready = append(ready, *r)
			}
		}
	}
	return ready
}

// dispatch hands one Ready request to the executor and records the outcome.
func (s *Scheduler) dispatch(snapshot domain.UpgradeRequest, now time.Time) {
	err := s.applier.Apply(snapshot.Target, snapshot.NewImplementationID)
	if err != nil && s.reporter != nil {
		// Executor failures feed the circuit breaker: enough of them in a
		// row pause the whole system, not just this request.
		s.reporter.RecordFailure()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[snapshot.ID]
	if !ok {
		return
	}
	r.Attempts++

	if err == nil {
		r.Phase = domain.PhaseApplied
		r.ExecutedAt = now
		r.LastError = ""
		s.persistLocked(r)
		metrics.UpgradeWaitTime.Observe(now.Sub(r.RequestedAt).Seconds())
		return
	}

	r.LastError = err.Error()
	if r.Forced && r.Attempts >= s.config.MaxForcedAttempts {
		// A forced upgrade that keeps failing needs a human, not a loop.
		r.Phase = domain.PhaseStalled
		s.persistLocked(r)
		log.Printf("[upgrade] request %s stalled after %d forced attempts: %v", r.ID, r.Attempts, err)
		s.sink.Emit(domain.Event{
			Type: domain.EventUpgradeStalled, At: now,
			Subject: r.ID, Detail: fmt.Sprintf("attempts=%d err=%v", r.Attempts, err),
		})
		return
	}

	// Retry on the next tick, still bounded by max_delay forcing.
	r.Phase = domain.PhaseWaiting
	s.persistLocked(r)
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Get returns an upgrade request snapshot by ID.
func (s *Scheduler) Get(id string) (*domain.UpgradeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, domain.ErrUpgradeNotFound
	}
	snapshot := *r
	return &snapshot, nil
}

// List returns all requests, newest first.
func (s *Scheduler) List() []domain.UpgradeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.UpgradeRequest, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})
	return out
}

// PendingCount returns how many requests are not yet in a terminal phase.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.requests {
		if !r.Phase.IsTerminal() && r.Phase != domain.PhaseStalled {
			n++
		}
	}
	return n
}

// ─── Internal ───────────────────────────────────────────────────────────────

func (s *Scheduler) persistLocked(r *domain.UpgradeRequest) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveUpgradeRequest(*r); err != nil {
		log.Printf("[upgrade] persist request %s: %v", r.ID, err)
	}
}
