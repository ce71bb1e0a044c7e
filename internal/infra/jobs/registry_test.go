package jobs

import (
	"testing"

	"github.com/agora-network/agora/internal/domain"
)

// Registry must satisfy the scheduler's view of the job system.
var _ domain.JobRegistry = (*Registry)(nil)

func TestRegistry_StartAndComplete(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Start("job-1", "inference"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := r.Start("job-2", "training"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := r.ActiveJobCount(); got != 2 {
		t.Fatalf("active = %d, want 2", got)
	}

	if err := r.Complete("job-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := r.ActiveJobCount(); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}

	select {
	case id := <-r.Completions():
		if id != "job-1" {
			t.Fatalf("completion signal = %s, want job-1", id)
		}
	default:
		t.Fatal("expected a buffered completion signal")
	}
}

func TestRegistry_DuplicateStart(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Start("job-1", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := r.Start("job-1", ""); err == nil {
		t.Fatal("duplicate start must fail")
	}
	if got := r.ActiveJobCount(); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}
}

func TestRegistry_StartsCounterIsMonotone(t *testing.T) {
	r := NewRegistry()

	if got := r.Starts(); got != 0 {
		t.Fatalf("starts = %d, want 0", got)
	}
	if _, err := r.Start("job-1", "inference"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Complete("job-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// The counter records that a job ran even though none is active now.
	if got := r.Starts(); got != 1 {
		t.Fatalf("starts = %d, want 1", got)
	}
	if got := r.ActiveJobCount(); got != 0 {
		t.Fatalf("active = %d, want 0", got)
	}

	// Rejected starts don't count.
	if _, err := r.Start("job-2", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := r.Start("job-2", ""); err == nil {
		t.Fatal("duplicate start must fail")
	}
	if got := r.Starts(); got != 2 {
		t.Fatalf("starts = %d, want 2", got)
	}
}

func TestRegistry_CompleteUnknown(t *testing.T) {
	r := NewRegistry()
	if err := r.Complete("ghost"); err == nil {
		t.Fatal("completing an unknown job must fail")
	}
}

func TestRegistry_EmptyID(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Start("", "inference"); err == nil {
		t.Fatal("empty id must fail")
	}
}
