// Package govern implements the proposal registry: lifecycle, power-weighted
// tallies, per-kind quorum and timelock policy, and execution hand-off.
//
// Five proposal kinds share one state machine but differ in voting period,
// timelock, quorum, and who may propose (domain.KindPolicy). Quorum is
// measured against the total effective power supply; approval requires
// strictly more FOR than AGAINST weight.
package govern

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agora-network/agora/internal/domain"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config configures the proposal registry.
type Config struct {
	MinProposePower      uint64        // standard authorization threshold
	EnhancedProposePower uint64        // Upgrade-kind authorization threshold
	ExecutionGrace       time.Duration // window after timelock_end before Expired
	MaxActiveProposals   int           // open proposals at once (spam bound)
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MinProposePower:      100,
		EnhancedProposePower: 1000,
		ExecutionGrace:       14 * 24 * time.Hour,
		MaxActiveProposals:   50,
	}
}

// ─── Collaborator Seams ─────────────────────────────────────────────────────

// Gate is the system-wide pause check. A non-nil error blocks the operation.
type Gate interface {
	Allow() error
}

// ActionSink applies a proposal's actions on execution. For Upgrade-kind
// proposals the sink hands an upgrade request to the scheduler instead of
// applying anything immediately.
type ActionSink interface {
	ApplyAction(p domain.Proposal, a domain.Action) error
}

// Store persists proposals and the immutable vote audit trail. SaveVote
// writes the vote record and the updated proposal tallies as one unit — a
// crash between the two must never split them.
type Store interface {
	SaveProposal(p domain.Proposal) error
	SaveVote(v domain.VoteRecord, p domain.Proposal) error
}

// Deps are the external collaborators the engine reads or notifies.
// Power and TotalPower are required; the rest may be nil.
type Deps struct {
	Power      func(account string) uint64 // effective power, delegation-aware
	TotalPower func() uint64               // total supply quorum is measured against
	Council    domain.Council              // Emergency-kind authorization
	Gate       Gate                        // circuit breaker
	Actions    ActionSink                  // execution target
	Sink       domain.EventSink            // audit events
	Store      Store                       // write-through persistence
}

// ─── Engine ─────────────────────────────────────────────────────────────────

// Engine owns the proposal lifecycle. All mutations run under one mutex so
// every operation appears to execute in full isolation.
type Engine struct {
	mu        sync.Mutex
	config    Config
	deps      Deps
	proposals map[string]*domain.Proposal
	votes     map[string]map[string]*domain.VoteRecord // proposalID → voter → record

	// now is injectable for testing.
	now func() time.Time
}

// NewEngine creates a proposal registry.
func NewEngine(cfg Config, deps Deps) *Engine {
	if deps.Sink == nil {
		deps.Sink = domain.NopSink{}
	}
	return &Engine{
		config:    cfg,
		deps:      deps,
		proposals: make(map[string]*domain.Proposal),
		votes:     make(map[string]map[string]*domain.VoteRecord),
		now:       time.Now,
	}
}

// SetConfig retunes the governable thresholds at runtime, e.g. after an
// executed parameter-change proposal. Zero fields keep the current value.
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cfg.MinProposePower > 0 {
		e.config.MinProposePower = cfg.MinProposePower
	}
	if cfg.EnhancedProposePower > 0 {
		e.config.EnhancedProposePower = cfg.EnhancedProposePower
	}
	if cfg.ExecutionGrace > 0 {
		e.config.ExecutionGrace = cfg.ExecutionGrace
	}
	if cfg.MaxActiveProposals > 0 {
		e.config.MaxActiveProposals = cfg.MaxActiveProposals
	}
}

func (e *Engine) configSnapshot() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// ─── Proposal Lifecycle ─────────────────────────────────────────────────────

// Propose creates a proposal in Pending state. Authorization depends on the
// kind: Emergency requires council membership, Upgrade the enhanced power
// threshold, everything else the standard threshold. While the system is
// paused only the Emergency path stays open.
func (e *Engine) Propose(proposer string, kind domain.ProposalKind, title, description string, actions []domain.Action) (*domain.Proposal, error) {
	if e.deps.Gate != nil && kind != domain.KindEmergency {
		if err := e.deps.Gate.Allow(); err != nil {
			return nil, err
		}
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("proposal title is required")
	}
	if proposer == "" {
		return nil, fmt.Errorf("proposer is required")
	}

	cfg := e.configSnapshot()
	policy := kind.Policy()
	switch policy.Authorization {
	case domain.AuthCouncil:
		if e.deps.Council == nil || !e.deps.Council.IsMember(proposer) {
			return nil, domain.ErrUnauthorized
		}
	case domain.AuthEnhanced:
		if e.deps.Power(proposer) < cfg.EnhancedProposePower {
			return nil, domain.ErrUnauthorized
		}
	default:
		if e.deps.Power(proposer) < cfg.MinProposePower {
			return nil, domain.ErrUnauthorized
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	open := 0
	for _, p := range e.proposals {
		if p.State == domain.StatePending || p.State == domain.StateActive {
			open++
		}
	}
	if open >= e.config.MaxActiveProposals {
		return nil, domain.ErrTooManyActiveProposals
	}

	now := e.now()
	p := &domain.Proposal{
		ID:          "prop-" + uuid.New().String()[:8],
		Kind:        kind,
		State:       domain.StatePending,
		Proposer:    proposer,
		Title:       title,
		Description: description,
		Actions:     actions,
		CreatedAt:   now,
	}

	if err := e.persistLocked(p); err != nil {
		return nil, err
	}
	e.proposals[p.ID] = p
	e.votes[p.ID] = make(map[string]*domain.VoteRecord)

	e.deps.Sink.Emit(domain.Event{
		Type: domain.EventProposalCreated, At: now,
		Subject: p.ID, Detail: fmt.Sprintf("kind=%s proposer=%s", kind, proposer),
	})
	snapshot := *p
	return &snapshot, nil
}

// Open moves a Pending proposal to Active and starts its voting clock.
func (e *Engine) Open(proposalID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.proposals[proposalID]
	if !ok {
		return domain.ErrProposalNotFound
	}
	if p.State != domain.StatePending {
		return domain.ErrInvalidState
	}

	p.State = domain.StateActive
	p.VotingEnd = e.now().Add(p.Kind.Policy().VotingPeriod)
	return e.persistLocked(p)
}

// Cancel withdraws an Active proposal before its voting end. The proposer may
// cancel only while no votes have been cast; an admin may cancel regardless.
func (e *Engine) Cancel(proposalID, caller string, admin bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.proposals[proposalID]
	if !ok {
		return domain.ErrProposalNotFound
	}
	if p.State != domain.StateActive {
		return domain.ErrInvalidState
	}
	now := e.now()
	if now.After(p.VotingEnd) {
		return domain.ErrInvalidState
	}
	if !admin {
		if caller != p.Proposer {
			return domain.ErrUnauthorized
		}
		if len(e.votes[proposalID]) > 0 {
			return domain.ErrVotesAlreadyCast
		}
	}

	p.State = domain.StateCancelled
	p.ClosedAt = now
	if err := e.persistLocked(p); err != nil {
		return err
	}

	e.deps.Sink.Emit(domain.Event{
		Type: domain.EventProposalCancelled, At: now,
		Subject: p.ID, Detail: "by=" + caller,
	})
	return nil
}

// ─── Voting ─────────────────────────────────────────────────────────────────

// Vote casts voter's full effective power on one side of an Active proposal.
// The tally increment and the vote record are created atomically: a store
// failure leaves the tallies untouched.
func (e *Engine) Vote(proposalID, voter string, side domain.VoteSide) (*domain.VoteRecord, error) {
	if e.deps.Gate != nil {
		if err := e.deps.Gate.Allow(); err != nil {
			return nil, err
		}
	}

	// Effective power is evaluated live at cast time; the record below is
	// the durable source of truth for this vote's weight.
	weight := e.deps.Power(voter)

	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.proposals[proposalID]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	if p.State != domain.StateActive {
		return nil, domain.ErrVotingClosed
	}
	now := e.now()
	if now.After(p.VotingEnd) {
		return nil, domain.ErrVotingClosed
	}
	if _, dup := e.votes[proposalID][voter]; dup {
		return nil, domain.ErrAlreadyVoted
	}
	if weight == 0 {
		return nil, domain.ErrZeroPower
	}

	rec := &domain.VoteRecord{
		ProposalID: proposalID,
		Voter:      voter,
		Side:       side,
		Weight:     weight,
		CastAt:     now,
	}

	switch side {
	case domain.SideFor:
		p.VotesFor += weight
	case domain.SideAgainst:
		p.VotesAgainst += weight
	case domain.SideAbstain:
		p.VotesAbstain += weight
	}
	e.votes[proposalID][voter] = rec

	// The record and the tally are one durable unit: the store writes both
	// in a single transaction, and a failure undoes the in-memory side.
	if e.deps.Store != nil {
		if err := e.deps.Store.SaveVote(*rec, *p); err != nil {
			switch side {
			case domain.SideFor:
				p.VotesFor -= weight
			case domain.SideAgainst:
				p.VotesAgainst -= weight
			case domain.SideAbstain:
				p.VotesAbstain -= weight
			}
			delete(e.votes[proposalID], voter)
			return nil, fmt.Errorf("persist vote: %w", err)
		}
	}

	e.deps.Sink.Emit(domain.Event{
		Type: domain.EventVoteCast, At: now,
		Subject: p.ID, Detail: fmt.Sprintf("voter=%s side=%s weight=%d", voter, side, weight),
	})
	snapshot := *rec
	return &snapshot, nil
}

// Tally returns the current voting state of a proposal.
func (e *Engine) Tally(proposalID string) (*domain.Tally, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.proposals[proposalID]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	t := e.tallyLocked(p)
	return &t, nil
}

func (e *Engine) tallyLocked(p *domain.Proposal) domain.Tally {
	policy := p.Kind.Policy()
	total := e.deps.TotalPower()

	t := domain.Tally{
		ProposalID:    p.ID,
		ForWeight:     p.VotesFor,
		AgainstWeight: p.VotesAgainst,
		AbstainWeight: p.VotesAbstain,
		Participation: p.Participation(),
		VoterCount:    len(e.votes[p.ID]),
	}
	if total > 0 {
		t.QuorumWeight = total * uint64(policy.QuorumPermille) / 1000
	}
	t.QuorumReached = t.Participation*1000 >= total*uint64(policy.QuorumPermille)
	decided := p.VotesFor + p.VotesAgainst
	t.Approved = p.VotesFor*1000 > decided*uint64(policy.ApprovalPermille)
	return t
}

// ─── Resolution ─────────────────────────────────────────────────────────────

// FinalizeExpired closes Active proposals whose voting period has ended and
// expires Queued proposals whose execution grace window has passed. Call it
// periodically. Returns the proposals that changed state.
func (e *Engine) FinalizeExpired() []*domain.Proposal {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var changed []*domain.Proposal

	for _, p := range e.proposals {
		switch p.State {
		case domain.StateActive:
			if now.Before(p.VotingEnd) {
				continue
			}
			tally := e.tallyLocked(p)
			p.TotalPower = e.deps.TotalPower()
			p.ClosedAt = now

			if tally.QuorumReached && tally.Approved {
				// Succeeded proposals queue immediately. The timelock counts
				// from voting_end; for Emergency it is zero from creation.
				p.State = domain.StateQueued
				p.TimelockEnd = p.VotingEnd.Add(p.Kind.Policy().Timelock)
				if p.Kind == domain.KindEmergency {
					p.TimelockEnd = p.CreatedAt
				}
				e.deps.Sink.Emit(domain.Event{Type: domain.EventProposalSucceeded, At: now, Subject: p.ID})
				e.deps.Sink.Emit(domain.Event{Type: domain.EventProposalQueued, At: now, Subject: p.ID})
			} else {
				p.State = domain.StateDefeated
				e.deps.Sink.Emit(domain.Event{Type: domain.EventProposalDefeated, At: now, Subject: p.ID})
			}
			_ = e.persistLocked(p)
			changed = append(changed, p)

		case domain.StateQueued:
			if now.Before(p.TimelockEnd.Add(e.config.ExecutionGrace)) {
				continue
			}
			p.State = domain.StateExpired
			_ = e.persistLocked(p)
			e.deps.Sink.Emit(domain.Event{Type: domain.EventProposalExpired, At: now, Subject: p.ID})
			changed = append(changed, p)
		}
	}
	return changed
}

// ─── Execution ──────────────────────────────────────────────────────────────

// Execute applies all actions of a Queued proposal once its timelock has
// elapsed. Any caller may execute. An action failure leaves the proposal
// Queued, retryable until its grace window expires.
func (e *Engine) Execute(proposalID string) error {
	if e.deps.Gate != nil {
		if err := e.deps.Gate.Allow(); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.proposals[proposalID]
	if !ok {
		return domain.ErrProposalNotFound
	}
	if p.State == domain.StateExecuted {
		return domain.ErrAlreadyExecuted
	}
	if p.State != domain.StateQueued {
		return domain.ErrNotQueued
	}
	now := e.now()
	if now.Before(p.TimelockEnd) {
		return domain.ErrTimelockNotElapsed
	}

	if e.deps.Actions != nil {
		for _, a := range p.Actions {
			if err := e.deps.Actions.ApplyAction(*p, a); err != nil {
				return fmt.Errorf("apply action %s/%s: %w", a.Target, a.Method, err)
			}
		}
	}

	p.State = domain.StateExecuted
	p.ExecutedAt = now
	if err := e.persistLocked(p); err != nil {
		return err
	}

	e.deps.Sink.Emit(domain.Event{Type: domain.EventProposalExecuted, At: now, Subject: p.ID})
	return nil
}

// Load seeds the registry with persisted proposals and their vote trails at
// startup. It does not re-validate: the records already passed every check
// when they were first written.
func (e *Engine) Load(proposals []domain.Proposal, votes []domain.VoteRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range proposals {
		snapshot := p
		e.proposals[p.ID] = &snapshot
		if _, ok := e.votes[p.ID]; !ok {
			e.votes[p.ID] = make(map[string]*domain.VoteRecord)
		}
	}
	for _, v := range votes {
		if _, ok := e.votes[v.ProposalID]; !ok {
			continue
		}
		record := v
		e.votes[v.ProposalID][v.Voter] = &record
	}
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Get returns a proposal snapshot by ID.
func (e *Engine) Get(proposalID string) (*domain.Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.proposals[proposalID]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	snapshot := *p
	return &snapshot, nil
}

// List returns proposals filtered by state (nil for all), newest first.
func (e *Engine) List(state *domain.ProposalState) []*domain.Proposal {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := make([]*domain.Proposal, 0)
	for _, p := range e.proposals {
		if state == nil || p.State == *state {
			snapshot := *p
			result = append(result, &snapshot)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// VoteRecords returns the audit trail for a proposal, ordered by voter.
func (e *Engine) VoteRecords(proposalID string) ([]domain.VoteRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	voters, ok := e.votes[proposalID]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	out := make([]domain.VoteRecord, 0, len(voters))
	for _, r := range voters {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Voter < out[j].Voter })
	return out, nil
}

// Stats summarizes registry activity.
type Stats struct {
	TotalProposals    int `json:"total_proposals"`
	OpenProposals     int `json:"open_proposals"` // Pending + Active
	QueuedProposals   int `json:"queued_proposals"`
	ExecutedProposals int `json:"executed_proposals"`
	DefeatedProposals int `json:"defeated_proposals"`
	TotalVotesCast    int `json:"total_votes_cast"`
}

// Stats returns aggregate registry metrics.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	var s Stats
	s.TotalProposals = len(e.proposals)
	for _, p := range e.proposals {
		switch p.State {
		case domain.StatePending, domain.StateActive:
			s.OpenProposals++
		case domain.StateQueued:
			s.QueuedProposals++
		case domain.StateExecuted:
			s.ExecutedProposals++
		case domain.StateDefeated:
			s.DefeatedProposals++
		}
	}
	for _, voters := range e.votes {
		s.TotalVotesCast += len(voters)
	}
	return s
}

// ─── Internal ───────────────────────────────────────────────────────────────

func (e *Engine) persistLocked(p *domain.Proposal) error {
	if e.deps.Store == nil {
		return nil
	}
	if err := e.deps.Store.SaveProposal(*p); err != nil {
		return fmt.Errorf("persist proposal: %w", err)
	}
	return nil
}
