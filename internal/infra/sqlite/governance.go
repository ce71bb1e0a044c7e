package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agora-network/agora/internal/domain"
)

// execer is the subset of *sql.DB and *sql.Tx the write helpers need, so the
// same statement runs standalone or inside a transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// ─── Proposals ──────────────────────────────────────────────────────────────

// SaveProposal inserts or updates a proposal with its embedded tallies.
func (d *DB) SaveProposal(p domain.Proposal) error {
	return upsertProposal(d.db, p)
}

func upsertProposal(ex execer, p domain.Proposal) error {
	actions, err := json.Marshal(p.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}

	_, err = ex.Exec(
		`INSERT INTO proposals (id, kind, state, proposer, title, description, actions,
			votes_for, votes_against, votes_abstain, total_power,
			created_at, voting_end, timelock_end, executed_at, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			state=excluded.state,
			votes_for=excluded.votes_for,
			votes_against=excluded.votes_against,
			votes_abstain=excluded.votes_abstain,
			total_power=excluded.total_power,
			voting_end=excluded.voting_end,
			timelock_end=excluded.timelock_end,
			executed_at=excluded.executed_at,
			closed_at=excluded.closed_at`,
		p.ID, p.Kind.String(), p.State.String(), p.Proposer, p.Title, p.Description, string(actions),
		p.VotesFor, p.VotesAgainst, p.VotesAbstain, p.TotalPower,
		p.CreatedAt.Unix(), nullableUnix(p.VotingEnd), nullableUnix(p.TimelockEnd),
		nullableUnix(p.ExecutedAt), nullableUnix(p.ClosedAt),
	)
	return err
}

// GetProposal retrieves a single proposal by ID. Returns nil when absent.
func (d *DB) GetProposal(id string) (*domain.Proposal, error) {
	row := d.db.QueryRow(
		`SELECT id, kind, state, proposer, title, description, actions,
			votes_for, votes_against, votes_abstain, total_power,
			created_at, voting_end, timelock_end, executed_at, closed_at
		 FROM proposals WHERE id = ?`, id,
	)
	return scanProposal(row)
}

// ListProposals returns all proposals, newest first.
func (d *DB) ListProposals() ([]domain.Proposal, error) {
	rows, err := d.db.Query(
		`SELECT id, kind, state, proposer, title, description, actions,
			votes_for, votes_against, votes_abstain, total_power,
			created_at, voting_end, timelock_end, executed_at, closed_at
		 FROM proposals ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanProposal(s scanner) (*domain.Proposal, error) {
	var p domain.Proposal
	var kind, state, actions string
	var createdAt int64
	var votingEnd, timelockEnd, executedAt, closedAt sql.NullInt64

	err := s.Scan(&p.ID, &kind, &state, &p.Proposer, &p.Title, &p.Description, &actions,
		&p.VotesFor, &p.VotesAgainst, &p.VotesAbstain, &p.TotalPower,
		&createdAt, &votingEnd, &timelockEnd, &executedAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	k, ok := domain.ParseProposalKind(kind)
	if !ok {
		return nil, fmt.Errorf("proposal %s: unknown kind %q", p.ID, kind)
	}
	st, ok := domain.ParseProposalState(state)
	if !ok {
		return nil, fmt.Errorf("proposal %s: unknown state %q", p.ID, state)
	}
	p.Kind, p.State = k, st

	if err := json.Unmarshal([]byte(actions), &p.Actions); err != nil {
		return nil, fmt.Errorf("proposal %s: unmarshal actions: %w", p.ID, err)
	}

	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.VotingEnd = unixOrZero(votingEnd)
	p.TimelockEnd = unixOrZero(timelockEnd)
	p.ExecutedAt = unixOrZero(executedAt)
	p.ClosedAt = unixOrZero(closedAt)
	return &p, nil
}

// ─── Votes ──────────────────────────────────────────────────────────────────

// InsertVoteRecord appends to the immutable vote audit trail. A second vote
// by the same voter violates the table's primary key and fails.
func (d *DB) InsertVoteRecord(v domain.VoteRecord) error {
	return insertVote(d.db, v)
}

func insertVote(ex execer, v domain.VoteRecord) error {
	_, err := ex.Exec(
		`INSERT INTO votes (proposal_id, voter, side, weight, cast_at)
		 VALUES (?, ?, ?, ?, ?)`,
		v.ProposalID, v.Voter, v.Side.String(), v.Weight, v.CastAt.Unix(),
	)
	return err
}

// SaveVote writes a vote record and the proposal's updated tallies in one
// transaction. A duplicate vote rolls back the whole pair, so the stored
// tallies never drift from the audit trail.
func (d *DB) SaveVote(v domain.VoteRecord, p domain.Proposal) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	if err := insertVote(tx, v); err != nil {
		tx.Rollback()
		return err
	}
	if err := upsertProposal(tx, p); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// VoteRecords returns all stored votes for a proposal.
func (d *DB) VoteRecords(proposalID string) ([]domain.VoteRecord, error) {
	rows, err := d.db.Query(
		`SELECT proposal_id, voter, side, weight, cast_at
		 FROM votes WHERE proposal_id = ? ORDER BY cast_at`, proposalID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.VoteRecord
	for rows.Next() {
		var v domain.VoteRecord
		var side string
		var castAt int64
		if err := rows.Scan(&v.ProposalID, &v.Voter, &side, &v.Weight, &castAt); err != nil {
			return nil, err
		}
		s, ok := domain.ParseVoteSide(side)
		if !ok {
			return nil, fmt.Errorf("vote on %s by %s: unknown side %q", v.ProposalID, v.Voter, side)
		}
		v.Side = s
		v.CastAt = time.Unix(castAt, 0).UTC()
		out = append(out, v)
	}
	return out, rows.Err()
}

// ─── Delegations ────────────────────────────────────────────────────────────

// SaveDelegation upserts the single outbound delegation of a delegator.
func (d *DB) SaveDelegation(from, to string) error {
	_, err := d.db.Exec(
		`INSERT INTO delegations (delegator, delegate, set_at) VALUES (?, ?, ?)
		 ON CONFLICT(delegator) DO UPDATE SET delegate=excluded.delegate, set_at=excluded.set_at`,
		from, to, time.Now().Unix(),
	)
	return err
}

// DeleteDelegation removes a delegator's outbound delegation.
func (d *DB) DeleteDelegation(from string) error {
	_, err := d.db.Exec(`DELETE FROM delegations WHERE delegator = ?`, from)
	return err
}

// Delegations returns the full delegator → delegate map.
func (d *DB) Delegations() (map[string]string, error) {
	rows, err := d.db.Query(`SELECT delegator, delegate FROM delegations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var from, to string
		if err := rows.Scan(&from, &to); err != nil {
			return nil, err
		}
		out[from] = to
	}
	return out, rows.Err()
}
