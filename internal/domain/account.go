package domain

import "time"

// Account is the stored stake/reputation snapshot for one address. The
// power calculator reads these facts; governance never mutates them except
// through the account intake API.
type Account struct {
	Address    string    `json:"address"`
	Balance    uint64    `json:"balance"`
	Staked     uint64    `json:"staked"`
	LockDays   uint64    `json:"lock_days"`
	Reputation uint64    `json:"reputation"` // 0–1000
	Resources  uint64    `json:"resources"`  // pre-scaled power bonus
	UpdatedAt  time.Time `json:"updated_at"`
}
