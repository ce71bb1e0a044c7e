package domain

import "time"

// ─── Upgrade Requests ───────────────────────────────────────────────────────

// UpgradePhase tracks a request through the job-aware scheduler.
type UpgradePhase int

const (
	PhaseRequested UpgradePhase = iota // accepted, not yet evaluated
	PhaseWaiting                       // active jobs present or zero-streak too short
	PhaseReady                         // safe (or forced) — handing off to executor
	PhaseApplied                       // executor reported success
	PhaseStalled                       // forced and repeatedly failing — operator required
	PhaseWithdrawn                     // originating proposal invalidated
)

// String returns the phase name.
func (p UpgradePhase) String() string {
	switch p {
	case PhaseRequested:
		return "REQUESTED"
	case PhaseWaiting:
		return "WAITING"
	case PhaseReady:
		return "READY"
	case PhaseApplied:
		return "APPLIED"
	case PhaseStalled:
		return "STALLED"
	case PhaseWithdrawn:
		return "WITHDRAWN"
	default:
		return "UNKNOWN"
	}
}

// ParseUpgradePhase converts a phase name back to its enum value.
func ParseUpgradePhase(s string) (UpgradePhase, bool) {
	switch s {
	case "REQUESTED":
		return PhaseRequested, true
	case "WAITING":
		return PhaseWaiting, true
	case "READY":
		return PhaseReady, true
	case "APPLIED":
		return PhaseApplied, true
	case "STALLED":
		return PhaseStalled, true
	case "WITHDRAWN":
		return PhaseWithdrawn, true
	default:
		return 0, false
	}
}

// IsTerminal reports whether the scheduler is done with the request.
func (p UpgradePhase) IsTerminal() bool {
	return p == PhaseApplied || p == PhaseWithdrawn
}

// UpgradeRequest is created only from an Executed Upgrade-kind proposal or
// the emergency fast path, and consumed exactly once by the executor.
type UpgradeRequest struct {
	ID                  string        `json:"id"`
	ProposalID          string        `json:"proposal_id,omitempty"` // empty on the emergency path
	Target              string        `json:"target"`
	NewImplementationID string        `json:"new_implementation_id"`
	Phase               UpgradePhase  `json:"phase"`
	RequestedAt         time.Time     `json:"requested_at"`
	GracePeriod         time.Duration `json:"grace_period"`
	MaxDelay            time.Duration `json:"max_delay"`
	Forced              bool          `json:"forced"`
	Attempts            int           `json:"attempts"` // executor attempts so far
	ExecutedAt          time.Time     `json:"executed_at,omitempty"`
	LastError           string        `json:"last_error,omitempty"`
}

// ─── Pause State ────────────────────────────────────────────────────────────

// PauseState is the circuit-breaker view read by every other component.
type PauseState struct {
	Paused        bool      `json:"paused"`
	FailureCount  int       `json:"failure_count"`
	Threshold     int       `json:"threshold"`
	LastFailureAt time.Time `json:"last_failure_at,omitempty"`
}
