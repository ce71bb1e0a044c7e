package power

import (
	"fmt"
	"sync"
	"time"

	"github.com/agora-network/agora/internal/domain"
)

// ─── Delegation Tracker ─────────────────────────────────────────────────────

// PowerFunc resolves an account's own (undelegated) voting power.
type PowerFunc func(account string) uint64

// Store persists the delegation map across restarts.
type Store interface {
	SaveDelegation(from, to string) error
	DeleteDelegation(from string) error
}

// Tracker maps delegators to delegates and aggregates effective power.
// Delegation is single-level: chains are rejected so a delegate lookup
// stays O(1) over its direct delegators instead of a graph walk.
//
// Effective power is computed on demand at vote-cast time, never cached —
// the vote record stores the weight used, so later stake or delegation
// changes cannot retroactively alter a cast vote.
type Tracker struct {
	mu       sync.RWMutex
	outbound map[string]string              // delegator → delegate
	inbound  map[string]map[string]struct{} // delegate → set of delegators
	ownPower PowerFunc
	sink     domain.EventSink
	store    Store
	now      func() time.Time
}

// NewTracker creates a delegation tracker over the given own-power function.
// A nil store disables persistence.
func NewTracker(ownPower PowerFunc, sink domain.EventSink, store Store) *Tracker {
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &Tracker{
		outbound: make(map[string]string),
		inbound:  make(map[string]map[string]struct{}),
		ownPower: ownPower,
		sink:     sink,
		store:    store,
		now:      time.Now,
	}
}

// Load seeds the tracker from persisted delegations, bypassing validation
// events. Call once at startup before serving requests.
func (t *Tracker) Load(delegations map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for from, to := range delegations {
		t.outbound[from] = to
		if t.inbound[to] == nil {
			t.inbound[to] = make(map[string]struct{})
		}
		t.inbound[to][from] = struct{}{}
	}
}

// Delegate assigns from's voting power to to, replacing any previous
// delegation by from. Fails with ErrInvalidDelegationChain when the result
// would be anything but a single hop.
func (t *Tracker) Delegate(from, to string) error {
	if from == "" || to == "" {
		return fmt.Errorf("delegate: accounts must be non-empty")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if from == to {
		return domain.ErrInvalidDelegationChain
	}
	// The delegate must not itself be delegating out,
	if _, delegating := t.outbound[to]; delegating {
		return domain.ErrInvalidDelegationChain
	}
	// and the delegator must not be holding anyone else's power.
	if len(t.inbound[from]) > 0 {
		return domain.ErrInvalidDelegationChain
	}

	if t.store != nil {
		if err := t.store.SaveDelegation(from, to); err != nil {
			return fmt.Errorf("persist delegation: %w", err)
		}
	}

	if prev, ok := t.outbound[from]; ok {
		delete(t.inbound[prev], from)
	}
	t.outbound[from] = to
	if t.inbound[to] == nil {
		t.inbound[to] = make(map[string]struct{})
	}
	t.inbound[to][from] = struct{}{}

	t.sink.Emit(domain.Event{
		Type:    domain.EventDelegateChanged,
		At:      t.now(),
		Subject: from,
		Detail:  "delegate=" + to,
	})
	return nil
}

// Revoke removes from's active delegation, restoring self-power immediately.
func (t *Tracker) Revoke(from string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	to, ok := t.outbound[from]
	if !ok {
		return domain.ErrNoActiveDelegation
	}
	if t.store != nil {
		if err := t.store.DeleteDelegation(from); err != nil {
			return fmt.Errorf("remove delegation: %w", err)
		}
	}
	delete(t.outbound, from)
	delete(t.inbound[to], from)

	t.sink.Emit(domain.Event{
		Type:    domain.EventDelegateRevoked,
		At:      t.now(),
		Subject: from,
		Detail:  "delegate=" + to,
	})
	return nil
}

// DelegateOf returns the active delegate of an account, if any.
func (t *Tracker) DelegateOf(account string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	to, ok := t.outbound[account]
	return to, ok
}

// EffectivePower returns own power plus the power of all direct delegators.
// An account that has delegated away returns 0 — its power travels with
// the delegate.
func (t *Tracker) EffectivePower(account string) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, delegated := t.outbound[account]; delegated {
		return 0
	}

	total := t.ownPower(account)
	for delegator := range t.inbound[account] {
		total += t.ownPower(delegator)
	}
	return total
}

// DelegatorCount returns how many accounts currently delegate to account.
func (t *Tracker) DelegatorCount(account string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.inbound[account])
}

// Delegations returns a copy of the delegator → delegate map.
func (t *Tracker) Delegations() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.outbound))
	for k, v := range t.outbound {
		out[k] = v
	}
	return out
}
