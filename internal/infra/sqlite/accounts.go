package sqlite

import (
	"database/sql"
	"time"

	"github.com/agora-network/agora/internal/domain"
)

// ─── Accounts ───────────────────────────────────────────────────────────────

// UpsertAccount inserts or updates an account's stake snapshot.
func (d *DB) UpsertAccount(a domain.Account) error {
	_, err := d.db.Exec(
		`INSERT INTO accounts (address, balance, staked, lock_days, reputation, resources, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(address) DO UPDATE SET
			balance=excluded.balance,
			staked=excluded.staked,
			lock_days=excluded.lock_days,
			reputation=excluded.reputation,
			resources=excluded.resources,
			updated_at=excluded.updated_at`,
		a.Address, a.Balance, a.Staked, a.LockDays, a.Reputation, a.Resources, a.UpdatedAt.Unix(),
	)
	return err
}

// GetAccount retrieves one account. Returns nil when absent.
func (d *DB) GetAccount(address string) (*domain.Account, error) {
	var a domain.Account
	var updatedAt int64
	err := d.db.QueryRow(
		`SELECT address, balance, staked, lock_days, reputation, resources, updated_at
		 FROM accounts WHERE address = ?`, address,
	).Scan(&a.Address, &a.Balance, &a.Staked, &a.LockDays, &a.Reputation, &a.Resources, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &a, nil
}

// ListAccounts returns all stored accounts ordered by address.
func (d *DB) ListAccounts() ([]domain.Account, error) {
	rows, err := d.db.Query(
		`SELECT address, balance, staked, lock_days, reputation, resources, updated_at
		 FROM accounts ORDER BY address`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		var a domain.Account
		var updatedAt int64
		if err := rows.Scan(&a.Address, &a.Balance, &a.Staked, &a.LockDays, &a.Reputation, &a.Resources, &updatedAt); err != nil {
			return nil, err
		}
		a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// ─── Parameters ─────────────────────────────────────────────────────────────

// SaveParam persists a governed parameter's current value.
func (d *DB) SaveParam(p domain.Param) error {
	_, err := d.db.Exec(
		`INSERT INTO params (key, value, changed_by, last_changed) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			changed_by=excluded.changed_by,
			last_changed=excluded.last_changed`,
		p.Key, p.CurrentValue, p.ChangedBy, p.LastChanged.Unix(),
	)
	return err
}

// LoadParams returns the persisted parameter values keyed by parameter key.
func (d *DB) LoadParams() (map[string]string, error) {
	rows, err := d.db.Query(`SELECT key, value FROM params`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
