// Package sqlite provides SQLite-based persistent storage for governance
// state. Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// ─── Governance ─────────────────────────────────────────────────

		// Proposals with embedded tallies. Actions are stored as JSON —
		// they are opaque to the store and always read back whole.
		`CREATE TABLE IF NOT EXISTS proposals (
			id            TEXT PRIMARY KEY,
			kind          TEXT NOT NULL,
			state         TEXT NOT NULL,
			proposer      TEXT NOT NULL,
			title         TEXT NOT NULL,
			description   TEXT DEFAULT '',
			actions       TEXT NOT NULL DEFAULT '[]',
			votes_for     INTEGER NOT NULL DEFAULT 0,
			votes_against INTEGER NOT NULL DEFAULT 0,
			votes_abstain INTEGER NOT NULL DEFAULT 0,
			total_power   INTEGER NOT NULL DEFAULT 0,
			created_at    INTEGER NOT NULL,
			voting_end    INTEGER,
			timelock_end  INTEGER,
			executed_at   INTEGER,
			closed_at     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_state ON proposals(state)`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_created ON proposals(created_at)`,

		// Immutable vote audit trail — one row per (proposal, voter)
		`CREATE TABLE IF NOT EXISTS votes (
			proposal_id TEXT NOT NULL,
			voter       TEXT NOT NULL,
			side        TEXT NOT NULL,
			weight      INTEGER NOT NULL,
			cast_at     INTEGER NOT NULL,
			PRIMARY KEY (proposal_id, voter)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_proposal ON votes(proposal_id)`,

		// Single-level delegation map
		`CREATE TABLE IF NOT EXISTS delegations (
			delegator TEXT PRIMARY KEY,
			delegate  TEXT NOT NULL,
			set_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_delegations_delegate ON delegations(delegate)`,

		// ─── Accounts ───────────────────────────────────────────────────

		// Stake/reputation snapshots feeding the power calculator
		`CREATE TABLE IF NOT EXISTS accounts (
			address    TEXT PRIMARY KEY,
			balance    INTEGER NOT NULL DEFAULT 0,
			staked     INTEGER NOT NULL DEFAULT 0,
			lock_days  INTEGER NOT NULL DEFAULT 0,
			reputation INTEGER NOT NULL DEFAULT 0,
			resources  INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		)`,

		// ─── Upgrade Coordination ───────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS upgrade_requests (
			id           TEXT PRIMARY KEY,
			proposal_id  TEXT DEFAULT '',
			target       TEXT NOT NULL,
			new_impl_id  TEXT NOT NULL,
			phase        TEXT NOT NULL,
			requested_at INTEGER NOT NULL,
			grace_secs   INTEGER NOT NULL,
			max_delay_s  INTEGER NOT NULL,
			forced       BOOLEAN NOT NULL DEFAULT 0,
			attempts     INTEGER NOT NULL DEFAULT 0,
			executed_at  INTEGER,
			last_error   TEXT DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_upgrades_phase ON upgrade_requests(phase)`,

		// Current-implementation pointer per target, with swap history
		`CREATE TABLE IF NOT EXISTS implementations (
			target     TEXT PRIMARY KEY,
			impl_id    TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS implementation_history (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			target    TEXT NOT NULL,
			impl_id   TEXT NOT NULL,
			set_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_impl_history_target ON implementation_history(target)`,

		// ─── Parameters ─────────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS params (
			key          TEXT PRIMARY KEY,
			value        TEXT NOT NULL,
			changed_by   TEXT DEFAULT '',
			last_changed INTEGER NOT NULL
		)`,

		// ─── Audit Log ──────────────────────────────────────────────────

		// Append-only — never updated or deleted
		`CREATE TABLE IF NOT EXISTS events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			type      TEXT NOT NULL,
			at        INTEGER NOT NULL,
			subject   TEXT NOT NULL,
			detail    TEXT DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_at ON events(at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_subject ON events(subject)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullableUnix(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func unixOrZero(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return time.Unix(n.Int64, 0).UTC()
}
