package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/agora-network/agora/internal/domain"
)

// ─── Upgrade Requests ───────────────────────────────────────────────────────

// SaveUpgradeRequest inserts or updates an upgrade request.
func (d *DB) SaveUpgradeRequest(r domain.UpgradeRequest) error {
	_, err := d.db.Exec(
		`INSERT INTO upgrade_requests (id, proposal_id, target, new_impl_id, phase,
			requested_at, grace_secs, max_delay_s, forced, attempts, executed_at, last_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			phase=excluded.phase,
			forced=excluded.forced,
			attempts=excluded.attempts,
			executed_at=excluded.executed_at,
			last_error=excluded.last_error`,
		r.ID, r.ProposalID, r.Target, r.NewImplementationID, r.Phase.String(),
		r.RequestedAt.Unix(), int64(r.GracePeriod.Seconds()), int64(r.MaxDelay.Seconds()),
		r.Forced, r.Attempts, nullableUnix(r.ExecutedAt), r.LastError,
	)
	return err
}

// ListUpgradeRequests returns all upgrade requests, newest first.
func (d *DB) ListUpgradeRequests() ([]domain.UpgradeRequest, error) {
	rows, err := d.db.Query(
		`SELECT id, proposal_id, target, new_impl_id, phase,
			requested_at, grace_secs, max_delay_s, forced, attempts, executed_at, last_error
		 FROM upgrade_requests ORDER BY requested_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UpgradeRequest
	for rows.Next() {
		var r domain.UpgradeRequest
		var phase string
		var requestedAt, graceSecs, maxDelaySecs int64
		var executedAt sql.NullInt64
		if err := rows.Scan(&r.ID, &r.ProposalID, &r.Target, &r.NewImplementationID, &phase,
			&requestedAt, &graceSecs, &maxDelaySecs, &r.Forced, &r.Attempts, &executedAt, &r.LastError); err != nil {
			return nil, err
		}
		p, ok := domain.ParseUpgradePhase(phase)
		if !ok {
			return nil, fmt.Errorf("upgrade %s: unknown phase %q", r.ID, phase)
		}
		r.Phase = p
		r.RequestedAt = time.Unix(requestedAt, 0).UTC()
		r.GracePeriod = time.Duration(graceSecs) * time.Second
		r.MaxDelay = time.Duration(maxDelaySecs) * time.Second
		r.ExecutedAt = unixOrZero(executedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ─── Implementation Pointers ────────────────────────────────────────────────
// DB satisfies domain.ImplementationRegistry: swaps land in the pointer
// table and the append-only history in one transaction.

// GetImplementation returns the current implementation ID for a target.
func (d *DB) GetImplementation(target string) (string, error) {
	var id string
	err := d.db.QueryRow(
		`SELECT impl_id FROM implementations WHERE target = ?`, target,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", domain.ErrTargetNotRegistered, target)
	}
	return id, err
}

// SetImplementation swaps the current-implementation pointer for a target
// and appends to the swap history.
func (d *DB) SetImplementation(target, id string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.Exec(
		`INSERT INTO implementations (target, impl_id, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(target) DO UPDATE SET impl_id=excluded.impl_id, updated_at=excluded.updated_at`,
		target, id, now,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO implementation_history (target, impl_id, set_at) VALUES (?, ?, ?)`,
		target, id, now,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// ImplementationHistory returns past pointer values for a target, newest first.
func (d *DB) ImplementationHistory(target string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.Query(
		`SELECT impl_id FROM implementation_history WHERE target = ? ORDER BY id DESC LIMIT ?`,
		target, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
