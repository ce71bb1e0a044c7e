package upgrade

import (
	"errors"
	"testing"

	"github.com/agora-network/agora/internal/domain"
)

type memRegistry struct {
	impls  map[string]string
	setErr error
}

func newMemRegistry(pairs ...string) *memRegistry {
	m := &memRegistry{impls: make(map[string]string)}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.impls[pairs[i]] = pairs[i+1]
	}
	return m
}

func (m *memRegistry) GetImplementation(target string) (string, error) {
	id, ok := m.impls[target]
	if !ok {
		return "", errors.New("unknown target")
	}
	return id, nil
}

func (m *memRegistry) SetImplementation(target, id string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.impls[target] = id
	return nil
}

func TestExecutor_SwapsAndEmits(t *testing.T) {
	reg := newMemRegistry("coordinator", "v1")
	var events []domain.Event
	e := NewExecutor(reg, nil, sinkFunc(func(ev domain.Event) { events = append(events, ev) }))

	if err := e.Apply("coordinator", "v2"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := reg.impls["coordinator"]; got != "v2" {
		t.Fatalf("pointer = %s, want v2", got)
	}
	if len(events) != 1 || events[0].Type != domain.EventUpgradeExecuted {
		t.Fatalf("events = %+v, want one UpgradeExecuted", events)
	}
}

func TestExecutor_RollsBackOnFailedSanityCheck(t *testing.T) {
	reg := newMemRegistry("coordinator", "v1")
	failing := func(target, id string) error { return errors.New("probe timeout") }
	var events []domain.Event
	e := NewExecutor(reg, failing, sinkFunc(func(ev domain.Event) { events = append(events, ev) }))

	err := e.Apply("coordinator", "v2")
	if !errors.Is(err, domain.ErrUpgradeSanityCheckFailed) {
		t.Fatalf("expected ErrUpgradeSanityCheckFailed, got %v", err)
	}

	// The observable pointer is exactly what it was before the attempt.
	if got := reg.impls["coordinator"]; got != "v1" {
		t.Fatalf("pointer after rollback = %s, want v1", got)
	}
	if len(events) != 1 || events[0].Type != domain.EventUpgradeRolledBack {
		t.Fatalf("events = %+v, want one UpgradeRolledBack", events)
	}

	// A second attempt rolls back to the same pointer again.
	if err := e.Apply("coordinator", "v2"); !errors.Is(err, domain.ErrUpgradeSanityCheckFailed) {
		t.Fatalf("second attempt: %v", err)
	}
	if got := reg.impls["coordinator"]; got != "v1" {
		t.Fatalf("pointer after second rollback = %s, want v1", got)
	}
}

func TestExecutor_UnknownTarget(t *testing.T) {
	e := NewExecutor(newMemRegistry(), nil, nil)
	if err := e.Apply("ghost", "v2"); !errors.Is(err, domain.ErrTargetNotRegistered) {
		t.Fatalf("expected ErrTargetNotRegistered, got %v", err)
	}
}

func TestExecutor_DefaultProbeVerifiesReadBack(t *testing.T) {
	reg := newMemRegistry("coordinator", "v1")
	e := NewExecutor(reg, nil, nil)

	if err := e.Apply("coordinator", "v2"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := reg.impls["coordinator"]; got != "v2" {
		t.Fatalf("pointer = %s, want v2", got)
	}
}
