// Package breaker implements the emergency controller: a system-wide pause
// gate tripped by repeated failures (or explicitly by the emergency council)
// and cleared only by an M-of-N council unpause.
//
// Unlike a classic half-open breaker there is no automatic recovery: the
// recovery timeout only makes unpausing POSSIBLE. Clearing the pause is
// always a deliberate, multi-signer action.
package breaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/agora-network/agora/internal/domain"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config configures the circuit breaker.
type Config struct {
	FailureThreshold int           // failures to trip (default 5)
	RecoveryTimeout  time.Duration // time after last failure before unpause is allowed (default 1h)
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		RecoveryTimeout:  time.Hour,
	}
}

// ─── Controller ─────────────────────────────────────────────────────────────

// Controller tracks failures and gates every mutating governance operation.
// Thread-safe for concurrent use.
type Controller struct {
	mu            sync.Mutex
	config        Config
	council       domain.Council
	paused        bool
	failureCount  int
	lastFailureAt time.Time
	totalTrips    int
	sink          domain.EventSink

	// now is injectable for testing.
	now func() time.Time
}

// NewController creates a circuit breaker gated by the given council.
func NewController(cfg Config, council domain.Council, sink domain.EventSink) *Controller {
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &Controller{
		config:  cfg,
		council: council,
		sink:    sink,
		now:     time.Now,
	}
}

// SetConfig retunes the breaker thresholds at runtime. Governance parameter
// changes land here; pause state and the running failure count are kept.
// Non-positive fields leave the current value untouched.
func (c *Controller) SetConfig(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg.FailureThreshold > 0 {
		c.config.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.RecoveryTimeout > 0 {
		c.config.RecoveryTimeout = cfg.RecoveryTimeout
	}
}

// Allow reports whether mutating operations may proceed.
// Returns ErrSystemPaused while the breaker is open.
func (c *Controller) Allow() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return domain.ErrSystemPaused
	}
	return nil
}

// RecordFailure increments the failure count and opens the breaker once the
// threshold is reached. Returns true if this call tripped the pause.
func (c *Controller) RecordFailure() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount++
	c.lastFailureAt = c.now()

	if !c.paused && c.failureCount >= c.config.FailureThreshold {
		c.pauseLocked("failure threshold reached")
		return true
	}
	return false
}

// Pause opens the breaker explicitly. Requires M-of-N council signatures.
func (c *Controller) Pause(signers []string) error {
	if err := VerifySigners(c.council, signers); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return nil
	}
	c.pauseLocked(fmt.Sprintf("council pause by %d signers", len(signers)))
	return nil
}

// Check reports whether the recovery timeout has elapsed, i.e. whether an
// unpause would currently be accepted. It never clears the pause itself.
func (c *Controller) Check() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Sub(c.lastFailureAt) >= c.config.RecoveryTimeout
}

// Unpause closes the breaker. Requires M-of-N council signatures AND an
// elapsed recovery timeout — time makes unpausing possible, signatures make
// it happen.
func (c *Controller) Unpause(signers []string) error {
	if err := VerifySigners(c.council, signers); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.paused {
		return domain.ErrNotPaused
	}
	if c.now().Sub(c.lastFailureAt) < c.config.RecoveryTimeout {
		return domain.ErrRecoveryTimeoutActive
	}

	c.paused = false
	c.failureCount = 0
	c.sink.Emit(domain.Event{
		Type: domain.EventEmergencyUnpaused, At: c.now(),
		Subject: "breaker", Detail: fmt.Sprintf("signers=%d", len(signers)),
	})
	return nil
}

// State returns the pause state read by every other component.
func (c *Controller) State() domain.PauseState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.PauseState{
		Paused:        c.paused,
		FailureCount:  c.failureCount,
		Threshold:     c.config.FailureThreshold,
		LastFailureAt: c.lastFailureAt,
	}
}

func (c *Controller) pauseLocked(reason string) {
	c.paused = true
	c.totalTrips++
	c.sink.Emit(domain.Event{
		Type: domain.EventEmergencyPauseTriggered, At: c.now(),
		Subject: "breaker", Detail: reason,
	})
}

// ─── Council Signature Verification ─────────────────────────────────────────

// VerifySigners checks that signers contains at least Required() distinct
// emergency council members. Identity verification itself (wallets, keys)
// belongs to the external membership service — this only enforces M-of-N.
func VerifySigners(council domain.Council, signers []string) error {
	if council == nil {
		return domain.ErrUnauthorized
	}

	seen := make(map[string]struct{}, len(signers))
	valid := 0
	for _, s := range signers {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if council.IsMember(s) {
			valid++
		}
	}
	if valid < council.Required() {
		return domain.ErrUnauthorized
	}
	return nil
}
