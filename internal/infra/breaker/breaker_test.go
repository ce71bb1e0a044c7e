package breaker

import (
	"testing"
	"time"

	"github.com/agora-network/agora/internal/domain"
)

type fakeCouncil struct {
	members  map[string]bool
	required int
}

func (f *fakeCouncil) IsMember(a string) bool { return f.members[a] }
func (f *fakeCouncil) Required() int          { return f.required }
func (f *fakeCouncil) Size() int              { return len(f.members) }

func twoOfThree() *fakeCouncil {
	return &fakeCouncil{
		members:  map[string]bool{"m1": true, "m2": true, "m3": true},
		required: 2,
	}
}

func testController() (*Controller, *time.Time) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := t0
	c := NewController(Config{FailureThreshold: 3, RecoveryTimeout: time.Hour}, twoOfThree(), nil)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestRecordFailure_TripsAtThreshold(t *testing.T) {
	c, _ := testController()

	if c.RecordFailure() || c.RecordFailure() {
		t.Fatal("breaker must not trip below threshold")
	}
	if err := c.Allow(); err != nil {
		t.Fatalf("expected open gate, got %v", err)
	}

	if !c.RecordFailure() {
		t.Fatal("third failure must trip the breaker")
	}
	if err := c.Allow(); err != domain.ErrSystemPaused {
		t.Fatalf("expected ErrSystemPaused, got %v", err)
	}

	st := c.State()
	if !st.Paused || st.FailureCount != 3 || st.Threshold != 3 {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestUnpause_RequiresTimeoutAndSigners(t *testing.T) {
	c, now := testController()
	for i := 0; i < 3; i++ {
		c.RecordFailure()
	}

	// Timeout not elapsed — signatures alone are not enough.
	if c.Check() {
		t.Fatal("recovery timeout must not have elapsed yet")
	}
	if err := c.Unpause([]string{"m1", "m2"}); err != domain.ErrRecoveryTimeoutActive {
		t.Fatalf("expected ErrRecoveryTimeoutActive, got %v", err)
	}

	// Timeout elapsed — but time alone never clears the pause.
	*now = now.Add(2 * time.Hour)
	if !c.Check() {
		t.Fatal("recovery timeout should have elapsed")
	}
	if err := c.Allow(); err != domain.ErrSystemPaused {
		t.Fatal("timeout must not auto-clear the pause")
	}

	// One signer is below M.
	if err := c.Unpause([]string{"m1"}); err != domain.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	// Duplicate signatures do not stack.
	if err := c.Unpause([]string{"m1", "m1"}); err != domain.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized for duplicates, got %v", err)
	}
	// Non-members do not count.
	if err := c.Unpause([]string{"m1", "intruder"}); err != domain.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized for non-member, got %v", err)
	}

	if err := c.Unpause([]string{"m1", "m2"}); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if err := c.Allow(); err != nil {
		t.Fatalf("expected closed breaker, got %v", err)
	}
	if c.State().FailureCount != 0 {
		t.Fatal("unpause must reset the failure count")
	}
}

func TestPause_CouncilFastPath(t *testing.T) {
	c, _ := testController()

	if err := c.Pause([]string{"m1"}); err != domain.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := c.Pause([]string{"m1", "m3"}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := c.Allow(); err != domain.ErrSystemPaused {
		t.Fatalf("expected ErrSystemPaused, got %v", err)
	}

	// No failure was recorded, so the recovery timeout is already clear
	// and only signatures stand between paused and running.
	if err := c.Unpause([]string{"m2", "m3"}); err != nil {
		t.Fatalf("unpause: %v", err)
	}
}

func TestUnpause_NotPaused(t *testing.T) {
	c, _ := testController()
	if err := c.Unpause([]string{"m1", "m2"}); err != domain.ErrNotPaused {
		t.Fatalf("expected ErrNotPaused, got %v", err)
	}
}

func TestPauseEvents(t *testing.T) {
	var events []domain.Event
	sink := sinkFunc(func(e domain.Event) { events = append(events, e) })

	c := NewController(Config{FailureThreshold: 1, RecoveryTimeout: 0}, twoOfThree(), sink)
	c.RecordFailure()
	if err := c.Unpause([]string{"m1", "m2"}); err != nil {
		t.Fatalf("unpause: %v", err)
	}

	if len(events) != 2 ||
		events[0].Type != domain.EventEmergencyPauseTriggered ||
		events[1].Type != domain.EventEmergencyUnpaused {
		t.Fatalf("unexpected events: %+v", events)
	}
}

type sinkFunc func(domain.Event)

func (f sinkFunc) Emit(e domain.Event) { f(e) }
