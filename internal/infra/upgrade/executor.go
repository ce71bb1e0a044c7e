package upgrade

import (
	"fmt"
	"sync"
	"time"

	"github.com/agora-network/agora/internal/domain"
)

// ─── Executor ───────────────────────────────────────────────────────────────

// SanityCheck probes a target after its pointer swap. A non-nil error
// triggers rollback. The default probe only verifies the pointer took.
type SanityCheck func(target, id string) error

// Executor atomically swaps the current-implementation pointer for a target
// and validates the result. The swap plus check is one logical transaction:
// on check failure the previous pointer is restored before Apply returns,
// so the target is never left in an inconsistent state.
type Executor struct {
	mu     sync.Mutex
	impls  domain.ImplementationRegistry
	sanity SanityCheck
	sink   domain.EventSink

	// now is injectable for testing.
	now func() time.Time
}

// NewExecutor creates an executor over the implementation registry.
// A nil sanity check falls back to a pointer read-back probe.
func NewExecutor(impls domain.ImplementationRegistry, sanity SanityCheck, sink domain.EventSink) *Executor {
	if sink == nil {
		sink = domain.NopSink{}
	}
	e := &Executor{impls: impls, sanity: sanity, sink: sink, now: time.Now}
	if e.sanity == nil {
		e.sanity = e.readBackProbe
	}
	return e
}

// Apply swaps target's implementation pointer to newImplementationID.
// On sanity failure it rolls back and returns ErrUpgradeSanityCheckFailed,
// leaving the registry exactly as it was before the attempt.
func (e *Executor) Apply(target, newImplementationID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, err := e.impls.GetImplementation(target)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrTargetNotRegistered, target)
	}

	if err := e.impls.SetImplementation(target, newImplementationID); err != nil {
		return fmt.Errorf("swap implementation: %w", err)
	}

	if err := e.sanity(target, newImplementationID); err != nil {
		if rbErr := e.impls.SetImplementation(target, prev); rbErr != nil {
			// Both swap and rollback failed — surface both, loudest first.
			return fmt.Errorf("rollback after failed sanity check: %v (check: %w)", rbErr, err)
		}
		e.sink.Emit(domain.Event{
			Type: domain.EventUpgradeRolledBack, At: e.now(),
			Subject: target, Detail: fmt.Sprintf("impl=%s restored=%s err=%v", newImplementationID, prev, err),
		})
		return fmt.Errorf("%w: %v", domain.ErrUpgradeSanityCheckFailed, err)
	}

	e.sink.Emit(domain.Event{
		Type: domain.EventUpgradeExecuted, At: e.now(),
		Subject: target, Detail: fmt.Sprintf("impl=%s previous=%s", newImplementationID, prev),
	})
	return nil
}

// readBackProbe confirms the registry now reports the new implementation.
func (e *Executor) readBackProbe(target, id string) error {
	got, err := e.impls.GetImplementation(target)
	if err != nil {
		return err
	}
	if got != id {
		return fmt.Errorf("pointer read-back mismatch: have %s, want %s", got, id)
	}
	return nil
}
