package power

import (
	"testing"

	"github.com/agora-network/agora/internal/domain"
)

func staticPower(m map[string]uint64) PowerFunc {
	return func(account string) uint64 { return m[account] }
}

func TestDelegate_AggregatesPower(t *testing.T) {
	tr := NewTracker(staticPower(map[string]uint64{"a": 100, "b": 30, "c": 7}), nil, nil)

	if err := tr.Delegate("b", "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Delegate("c", "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := tr.EffectivePower("a"); got != 137 {
		t.Fatalf("expected effective power 137, got %d", got)
	}
	if got := tr.EffectivePower("b"); got != 0 {
		t.Fatalf("delegator should have 0 effective power, got %d", got)
	}
	if tr.DelegatorCount("a") != 2 {
		t.Fatalf("expected 2 delegators, got %d", tr.DelegatorCount("a"))
	}
}

func TestDelegate_RejectsChains(t *testing.T) {
	tr := NewTracker(staticPower(map[string]uint64{"a": 1, "b": 1, "c": 1}), nil, nil)

	if err := tr.Delegate("b", "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// c → b would chain through b → a.
	if err := tr.Delegate("c", "b"); err != domain.ErrInvalidDelegationChain {
		t.Fatalf("expected ErrInvalidDelegationChain, got %v", err)
	}
	// a holds b's power, so a delegating out would also chain.
	if err := tr.Delegate("a", "c"); err != domain.ErrInvalidDelegationChain {
		t.Fatalf("expected ErrInvalidDelegationChain, got %v", err)
	}
	// Self-delegation is degenerate.
	if err := tr.Delegate("c", "c"); err != domain.ErrInvalidDelegationChain {
		t.Fatalf("expected ErrInvalidDelegationChain, got %v", err)
	}
}

func TestDelegate_ReplacesPrevious(t *testing.T) {
	tr := NewTracker(staticPower(map[string]uint64{"a": 10, "b": 10, "c": 5}), nil, nil)

	if err := tr.Delegate("c", "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Delegate("c", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := tr.EffectivePower("a"); got != 10 {
		t.Fatalf("expected a back to own power 10, got %d", got)
	}
	if got := tr.EffectivePower("b"); got != 15 {
		t.Fatalf("expected b at 15, got %d", got)
	}
}

func TestRevoke_RestoresSelfPower(t *testing.T) {
	tr := NewTracker(staticPower(map[string]uint64{"a": 10, "b": 6}), nil, nil)

	if err := tr.Delegate("b", "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Revoke("b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := tr.EffectivePower("b"); got != 6 {
		t.Fatalf("expected restored self power 6, got %d", got)
	}
	if got := tr.EffectivePower("a"); got != 10 {
		t.Fatalf("expected a back to 10, got %d", got)
	}
}

func TestRevoke_NoActiveDelegation(t *testing.T) {
	tr := NewTracker(staticPower(nil), nil, nil)
	if err := tr.Revoke("a"); err != domain.ErrNoActiveDelegation {
		t.Fatalf("expected ErrNoActiveDelegation, got %v", err)
	}
}

func TestDelegationEvents(t *testing.T) {
	var got []domain.Event
	sink := sinkFunc(func(e domain.Event) { got = append(got, e) })

	tr := NewTracker(staticPower(map[string]uint64{"a": 1, "b": 1}), sink, nil)
	_ = tr.Delegate("b", "a")
	_ = tr.Revoke("b")

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Type != domain.EventDelegateChanged || got[1].Type != domain.EventDelegateRevoked {
		t.Fatalf("unexpected event types: %v, %v", got[0].Type, got[1].Type)
	}
}

// sinkFunc adapts a function to domain.EventSink.
type sinkFunc func(domain.Event)

func (f sinkFunc) Emit(e domain.Event) { f(e) }
