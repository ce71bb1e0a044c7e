// Package domain defines the pure governance types shared by every layer:
// proposals, vote records, upgrade requests, events, and the interfaces of
// the external collaborators (stake ledger, reputation, job registry).
package domain

import "time"

// ─── Proposal Kinds ─────────────────────────────────────────────────────────

// ProposalKind classifies a proposal and selects its policy row.
type ProposalKind int

const (
	KindEmergency ProposalKind = iota // council-only fast path, zero timelock
	KindCritical                      // security-relevant change, 24h cycle
	KindStandard                      // general change, weekly cycle
	KindParameter                     // governable parameter change
	KindUpgrade                       // implementation swap — highest quorum
)

// String returns the kind name.
func (k ProposalKind) String() string {
	switch k {
	case KindEmergency:
		return "EMERGENCY"
	case KindCritical:
		return "CRITICAL"
	case KindStandard:
		return "STANDARD"
	case KindParameter:
		return "PARAMETER"
	case KindUpgrade:
		return "UPGRADE"
	default:
		return "UNKNOWN"
	}
}

// ParseProposalKind converts a kind name back to its enum value.
func ParseProposalKind(s string) (ProposalKind, bool) {
	switch s {
	case "EMERGENCY":
		return KindEmergency, true
	case "CRITICAL":
		return KindCritical, true
	case "STANDARD":
		return KindStandard, true
	case "PARAMETER":
		return KindParameter, true
	case "UPGRADE":
		return KindUpgrade, true
	default:
		return 0, false
	}
}

// Authorization selects who may create a proposal of a given kind.
type Authorization int

const (
	AuthCouncil  Authorization = iota // emergency council members only
	AuthStandard                      // power ≥ MinProposePower
	AuthEnhanced                      // power ≥ EnhancedProposePower
)

// KindPolicy is the fixed per-kind parameter row.
type KindPolicy struct {
	VotingPeriod     time.Duration
	Timelock         time.Duration
	QuorumPermille   int64 // participation threshold, in thousandths of total power
	ApprovalPermille int64 // votes_for share of (for+against) required, exclusive
	Authorization    Authorization
}

// Policy returns the fixed policy row for a kind. The switch is exhaustive —
// adding a kind without a row is a compile-visible, localized change.
func (k ProposalKind) Policy() KindPolicy {
	switch k {
	case KindEmergency:
		return KindPolicy{VotingPeriod: time.Hour, Timelock: 0, QuorumPermille: 100, ApprovalPermille: 500, Authorization: AuthCouncil}
	case KindCritical:
		return KindPolicy{VotingPeriod: 24 * time.Hour, Timelock: 24 * time.Hour, QuorumPermille: 200, ApprovalPermille: 500, Authorization: AuthStandard}
	case KindStandard:
		return KindPolicy{VotingPeriod: 7 * 24 * time.Hour, Timelock: 7 * 24 * time.Hour, QuorumPermille: 250, ApprovalPermille: 500, Authorization: AuthStandard}
	case KindParameter:
		return KindPolicy{VotingPeriod: 3 * 24 * time.Hour, Timelock: 3 * 24 * time.Hour, QuorumPermille: 167, ApprovalPermille: 500, Authorization: AuthStandard}
	case KindUpgrade:
		return KindPolicy{VotingPeriod: 7 * 24 * time.Hour, Timelock: 14 * 24 * time.Hour, QuorumPermille: 333, ApprovalPermille: 500, Authorization: AuthEnhanced}
	default:
		// Unknown kinds get the strictest row rather than a permissive zero value.
		return KindPolicy{VotingPeriod: 7 * 24 * time.Hour, Timelock: 14 * 24 * time.Hour, QuorumPermille: 333, ApprovalPermille: 500, Authorization: AuthEnhanced}
	}
}

// ─── Proposal States ────────────────────────────────────────────────────────

// ProposalState is the lifecycle position of a proposal. Transitions are
// monotonic and one-directional except Active → Cancelled.
type ProposalState int

const (
	StatePending   ProposalState = iota // created, voting not yet open
	StateActive                         // open for voting
	StateSucceeded                      // quorum met and for > against (transient)
	StateDefeated                       // quorum missed or for ≤ against
	StateQueued                         // succeeded, timelock counting down
	StateExecuted                       // all actions applied
	StateCancelled                      // withdrawn before voting_end
	StateExpired                        // timelock grace window passed unexecuted
)

// String returns a human-readable state.
func (s ProposalState) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateActive:
		return "ACTIVE"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateDefeated:
		return "DEFEATED"
	case StateQueued:
		return "QUEUED"
	case StateExecuted:
		return "EXECUTED"
	case StateCancelled:
		return "CANCELLED"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// ParseProposalState converts a state name back to its enum value.
func ParseProposalState(s string) (ProposalState, bool) {
	switch s {
	case "PENDING":
		return StatePending, true
	case "ACTIVE":
		return StateActive, true
	case "SUCCEEDED":
		return StateSucceeded, true
	case "DEFEATED":
		return StateDefeated, true
	case "QUEUED":
		return StateQueued, true
	case "EXECUTED":
		return StateExecuted, true
	case "CANCELLED":
		return StateCancelled, true
	case "EXPIRED":
		return StateExpired, true
	default:
		return 0, false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s ProposalState) IsTerminal() bool {
	switch s {
	case StateExecuted, StateDefeated, StateCancelled, StateExpired:
		return true
	}
	return false
}

// ─── Actions ────────────────────────────────────────────────────────────────

// Action is an opaque call applied when a proposal executes.
// Known methods: "upgrade" (Payload = new implementation ID) and
// "set_param" (Target = parameter key, Payload = new value).
type Action struct {
	Target  string `json:"target"`
	Method  string `json:"method"`
	Payload string `json:"payload"`
}

const (
	ActionUpgrade  = "upgrade"
	ActionSetParam = "set_param"
)

// ─── Proposal ───────────────────────────────────────────────────────────────

// Proposal is a governance proposal. Mutated only by vote casting and by the
// scheduler/executor; immutable once Executed or Cancelled.
type Proposal struct {
	ID          string        `json:"id"`
	Kind        ProposalKind  `json:"kind"`
	State       ProposalState `json:"state"`
	Proposer    string        `json:"proposer"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Actions     []Action      `json:"actions"`

	VotesFor     uint64 `json:"votes_for"`
	VotesAgainst uint64 `json:"votes_against"`
	VotesAbstain uint64 `json:"votes_abstain"`

	// TotalPower is the total effective power supply recorded at finalization,
	// against which quorum was measured. Zero until the voting sweep runs.
	TotalPower uint64 `json:"total_power"`

	CreatedAt   time.Time `json:"created_at"`
	VotingEnd   time.Time `json:"voting_end,omitempty"`
	TimelockEnd time.Time `json:"timelock_end,omitempty"`
	ExecutedAt  time.Time `json:"executed_at,omitempty"`
	ClosedAt    time.Time `json:"closed_at,omitempty"`
}

// Participation returns the total power that voted, any side.
func (p *Proposal) Participation() uint64 {
	return p.VotesFor + p.VotesAgainst + p.VotesAbstain
}

// ─── Vote Records ───────────────────────────────────────────────────────────

// VoteSide is the chosen side of a cast vote.
type VoteSide int

const (
	SideFor     VoteSide = iota // support
	SideAgainst                 // oppose
	SideAbstain                 // counted for quorum only
)

// String returns the side name.
func (v VoteSide) String() string {
	switch v {
	case SideFor:
		return "FOR"
	case SideAgainst:
		return "AGAINST"
	case SideAbstain:
		return "ABSTAIN"
	default:
		return "UNKNOWN"
	}
}

// ParseVoteSide converts a side name back to its enum value.
func ParseVoteSide(s string) (VoteSide, bool) {
	switch s {
	case "FOR":
		return SideFor, true
	case "AGAINST":
		return SideAgainst, true
	case "ABSTAIN":
		return SideAbstain, true
	default:
		return 0, false
	}
}

// VoteRecord is the audit-trail entry for one (proposal, voter) pair.
// Created on cast, never mutated, never deleted. Weight is the effective
// power used at cast time — the source of truth even if the voter's stake
// or delegation changes afterwards.
type VoteRecord struct {
	ProposalID string    `json:"proposal_id"`
	Voter      string    `json:"voter"`
	Side       VoteSide  `json:"side"`
	Weight     uint64    `json:"weight"`
	CastAt     time.Time `json:"cast_at"`
}

// ─── Tally ──────────────────────────────────────────────────────────────────

// Tally summarizes the voting state of a proposal at a point in time.
type Tally struct {
	ProposalID    string `json:"proposal_id"`
	ForWeight     uint64 `json:"for_weight"`
	AgainstWeight uint64 `json:"against_weight"`
	AbstainWeight uint64 `json:"abstain_weight"`
	Participation uint64 `json:"participation"`
	QuorumWeight  uint64 `json:"quorum_weight"` // power required for quorum
	VoterCount    int    `json:"voter_count"`
	QuorumReached bool   `json:"quorum_reached"`
	Approved      bool   `json:"approved"` // for > against per the kind's approval threshold
}
