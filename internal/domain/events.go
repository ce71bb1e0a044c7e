package domain

import "time"

// ─── Audit Events ───────────────────────────────────────────────────────────
// Every state transition emits an append-only event for observability and
// audit. Events are never updated or deleted.

// EventType names one observable transition.
type EventType string

const (
	EventProposalCreated   EventType = "ProposalCreated"
	EventVoteCast          EventType = "VoteCast"
	EventProposalSucceeded EventType = "ProposalSucceeded"
	EventProposalDefeated  EventType = "ProposalDefeated"
	EventProposalQueued    EventType = "ProposalQueued"
	EventProposalExecuted  EventType = "ProposalExecuted"
	EventProposalCancelled EventType = "ProposalCancelled"
	EventProposalExpired   EventType = "ProposalExpired"

	EventDelegateChanged EventType = "DelegateChanged"
	EventDelegateRevoked EventType = "DelegateRevoked"

	EventUpgradeRequested  EventType = "UpgradeRequested"
	EventUpgradeForced     EventType = "UpgradeForced"
	EventUpgradeExecuted   EventType = "UpgradeExecuted"
	EventUpgradeRolledBack EventType = "UpgradeRolledBack"
	EventUpgradeStalled    EventType = "UpgradeStalled"
	EventUpgradeWithdrawn  EventType = "UpgradeWithdrawn"

	EventEmergencyPauseTriggered EventType = "EmergencyPauseTriggered"
	EventEmergencyUnpaused       EventType = "EmergencyUnpaused"

	EventParameterChanged EventType = "ParameterChanged"
)

// Event is one append-only audit record.
type Event struct {
	ID      int64     `json:"id"`
	Type    EventType `json:"type"`
	At      time.Time `json:"at"`
	Subject string    `json:"subject"` // proposal/upgrade/account the event is about
	Detail  string    `json:"detail,omitempty"`
}

// EventSink receives audit events. Implementations must not block.
type EventSink interface {
	Emit(Event)
}

// NopSink discards events. Useful as a default in tests.
type NopSink struct{}

// Emit implements EventSink.
func (NopSink) Emit(Event) {}
