package sqlite

import (
	"time"

	"github.com/agora-network/agora/internal/domain"
)

// ─── Audit Log ──────────────────────────────────────────────────────────────

// AppendEvent adds one row to the append-only audit log and returns the
// assigned event ID.
func (d *DB) AppendEvent(e domain.Event) (int64, error) {
	res, err := d.db.Exec(
		`INSERT INTO events (type, at, subject, detail) VALUES (?, ?, ?, ?)`,
		string(e.Type), e.At.Unix(), e.Subject, e.Detail,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentEvents returns the newest events, most recent first.
func (d *DB) RecentEvents(limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.Query(
		`SELECT id, type, at, subject, detail FROM events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		var typ string
		var at int64
		if err := rows.Scan(&e.ID, &typ, &at, &e.Subject, &e.Detail); err != nil {
			return nil, err
		}
		e.Type = domain.EventType(typ)
		e.At = time.Unix(at, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// EventsBySubject returns the audit trail of one proposal/upgrade/account.
func (d *DB) EventsBySubject(subject string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.Query(
		`SELECT id, type, at, subject, detail FROM events WHERE subject = ? ORDER BY id DESC LIMIT ?`,
		subject, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		var typ string
		var at int64
		if err := rows.Scan(&e.ID, &typ, &at, &e.Subject, &e.Detail); err != nil {
			return nil, err
		}
		e.Type = domain.EventType(typ)
		e.At = time.Unix(at, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
