// Package params maintains the registry of governable runtime parameters.
// Every value here can be changed by an executed proposal of sufficient
// kind; protection levels keep reckless changes behind stronger votes and
// a small immutable core out of reach entirely.
package params

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/agora-network/agora/internal/domain"
)

// Store persists parameter values across restarts.
type Store interface {
	SaveParam(p domain.Param) error
}

// Registry holds the governable parameters and enforces protection levels.
type Registry struct {
	mu         sync.RWMutex
	params     map[string]*domain.Param
	validators map[string]func(string) error
	sink       domain.EventSink
	store      Store

	// Injectable clock
	now func() time.Time
}

// NewRegistry creates a registry pre-seeded with the default parameter set.
func NewRegistry(sink domain.EventSink, store Store) *Registry {
	if sink == nil {
		sink = domain.NopSink{}
	}
	r := &Registry{
		params:     make(map[string]*domain.Param),
		validators: make(map[string]func(string) error),
		sink:       sink,
		store:      store,
		now:        time.Now,
	}
	r.registerDefaults()
	return r
}

// ─── Registration ───────────────────────────────────────────────────────────

// Register adds a governable parameter. A nil validate accepts any value.
func (r *Registry) Register(p domain.Param, validate func(string) error) error {
	if p.Key == "" {
		return fmt.Errorf("parameter key cannot be empty")
	}
	if validate != nil {
		if err := validate(p.CurrentValue); err != nil {
			return fmt.Errorf("default for %q: %w", p.Key, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p.LastChanged = r.now()
	r.params[p.Key] = &p
	if validate != nil {
		r.validators[p.Key] = validate
	}
	return nil
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Get returns a parameter by key.
func (r *Registry) Get(key string) (domain.Param, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.params[key]
	if !ok {
		return domain.Param{}, fmt.Errorf("%w: %s", domain.ErrParameterNotFound, key)
	}
	return *p, nil
}

// Uint returns a parameter parsed as an unsigned integer.
func (r *Registry) Uint(key string) (uint64, error) {
	p, err := r.Get(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(p.CurrentValue, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an unsigned integer", domain.ErrParameterInvalid, key, p.CurrentValue)
	}
	return v, nil
}

// List returns all parameters sorted by key.
func (r *Registry) List() []domain.Param {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Param, 0, len(r.params))
	for _, p := range r.params {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ListByCategory returns the parameters in one category, sorted by key.
func (r *Registry) ListByCategory(cat domain.ParamCategory) []domain.Param {
	var out []domain.Param
	for _, p := range r.List() {
		if p.Category == cat {
			out = append(out, p)
		}
	}
	return out
}

// Count returns the number of registered parameters.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.params)
}

// Restore overwrites current values with persisted ones at startup. Unknown
// keys are skipped; protection is not consulted because the stored values
// already passed it when they were set.
func (r *Registry) Restore(values map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, value := range values {
		p, ok := r.params[key]
		if !ok {
			continue
		}
		if validate, ok := r.validators[key]; ok {
			if err := validate(value); err != nil {
				continue
			}
		}
		p.CurrentValue = value
	}
}

// ─── Mutation ───────────────────────────────────────────────────────────────

// Set changes a parameter on behalf of an executed proposal. The proposal's
// kind must clear the parameter's protection level and the new value must
// pass the parameter's validator.
func (r *Registry) Set(key, newValue, proposalID string, kind domain.ProposalKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.params[key]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrParameterNotFound, key)
	}
	if p.Protection == domain.ProtectionImmutable {
		return fmt.Errorf("%w: %s", domain.ErrParameterImmutable, key)
	}
	if !p.Protection.Satisfied(kind) {
		return fmt.Errorf("%w: %s requires more than a %s proposal", domain.ErrParameterProtected, key, kind)
	}
	if validate, ok := r.validators[key]; ok {
		if err := validate(newValue); err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrParameterInvalid, key, err)
		}
	}

	old := p.CurrentValue
	p.CurrentValue = newValue
	p.LastChanged = r.now()
	p.ChangedBy = proposalID

	if r.store != nil {
		if err := r.store.SaveParam(*p); err != nil {
			p.CurrentValue = old
			return fmt.Errorf("persist parameter %s: %w", key, err)
		}
	}

	r.sink.Emit(domain.Event{
		Type: domain.EventParameterChanged, At: p.LastChanged,
		Subject: key, Detail: fmt.Sprintf("old=%s new=%s proposal=%s", old, newValue, proposalID),
	})
	return nil
}

// ─── Defaults ───────────────────────────────────────────────────────────────

// registerDefaults seeds the parameters the community can vote on. The
// immutable core (strict-majority approval) is listed for visibility but
// rejected on any change attempt.
func (r *Registry) registerDefaults() {
	uintVal := func(s string) error {
		_, err := strconv.ParseUint(s, 10, 64)
		return err
	}
	permilleVal := func(s string) error {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		if v > 1000 {
			return fmt.Errorf("permille value %d out of range", v)
		}
		return nil
	}

	defaults := []struct {
		p        domain.Param
		validate func(string) error
	}{
		// Governance
		{domain.Param{Key: "min_propose_power", Category: domain.ParamCategoryGovernance, CurrentValue: "100", Description: "Minimum effective power to create a standard proposal", Protection: domain.ProtectionElevated}, uintVal},
		{domain.Param{Key: "enhanced_propose_power", Category: domain.ParamCategoryGovernance, CurrentValue: "1000", Description: "Minimum effective power to create an upgrade proposal", Protection: domain.ProtectionElevated}, uintVal},
		{domain.Param{Key: "max_active_proposals", Category: domain.ParamCategoryGovernance, CurrentValue: "50", Description: "Open proposals allowed at once", Protection: domain.ProtectionNormal}, uintVal},
		{domain.Param{Key: "execution_grace_days", Category: domain.ParamCategoryGovernance, CurrentValue: "14", Description: "Days a queued proposal stays executable after its timelock", Protection: domain.ProtectionNormal}, uintVal},
		{domain.Param{Key: "approval_permille", Category: domain.ParamCategoryGovernance, CurrentValue: "500", Description: "Strict-majority approval threshold — cannot be changed", Protection: domain.ProtectionImmutable}, permilleVal},

		// Upgrade coordination
		{domain.Param{Key: "upgrade_grace_seconds", Category: domain.ParamCategoryUpgrade, CurrentValue: "60", Description: "Continuous zero-job streak required before applying an upgrade", Protection: domain.ProtectionNormal}, uintVal},
		{domain.Param{Key: "upgrade_max_delay_hours", Category: domain.ParamCategoryUpgrade, CurrentValue: "24", Description: "Longest an upgrade may wait for jobs to drain before forcing", Protection: domain.ProtectionElevated}, uintVal},
		{domain.Param{Key: "upgrade_max_forced_attempts", Category: domain.ParamCategoryUpgrade, CurrentValue: "3", Description: "Forced executor failures before an upgrade is marked stalled", Protection: domain.ProtectionNormal}, uintVal},

		// Circuit breaker
		{domain.Param{Key: "breaker_failure_threshold", Category: domain.ParamCategoryBreaker, CurrentValue: "5", Description: "Consecutive critical failures that trip the automatic pause", Protection: domain.ProtectionCritical}, uintVal},
		{domain.Param{Key: "breaker_recovery_minutes", Category: domain.ParamCategoryBreaker, CurrentValue: "60", Description: "Minimum pause duration before council unpause is accepted", Protection: domain.ProtectionCritical}, uintVal},

		// Voting power
		{domain.Param{Key: "stake_weight_percent", Category: domain.ParamCategoryPower, CurrentValue: "50", Description: "Percent of staked amount counted as voting power", Protection: domain.ProtectionElevated}, permilleVal},
		{domain.Param{Key: "long_lock_days", Category: domain.ParamCategoryPower, CurrentValue: "365", Description: "Lock duration granting the full commitment bonus", Protection: domain.ProtectionElevated}, uintVal},
	}

	now := r.now()
	for _, d := range defaults {
		p := d.p
		p.LastChanged = now
		r.params[p.Key] = &p
		if d.validate != nil {
			r.validators[p.Key] = d.validate
		}
	}
}
