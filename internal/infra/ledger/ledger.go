// Package ledger serves stake, reputation, and resource facts to the power
// calculator from the persistent account store. Reads are zero-on-missing:
// an unknown account simply has no power.
package ledger

import (
	"fmt"
	"log"
	"time"

	"github.com/agora-network/agora/internal/domain"
)

// Store is the persistence the ledger reads through (see the sqlite package).
type Store interface {
	GetAccount(address string) (*domain.Account, error)
	UpsertAccount(a domain.Account) error
	ListAccounts() ([]domain.Account, error)
}

// Ledger satisfies domain.StakeLedger, domain.ReputationService, and
// domain.ResourceMeter over one account table.
type Ledger struct {
	store Store

	// Injectable clock
	now func() time.Time
}

// New creates a ledger over the given account store.
func New(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// ─── Intake ─────────────────────────────────────────────────────────────────

// SetAccount records an account's stake snapshot. Reputation is clamped to
// the 0–1000 scale the power formula expects.
func (l *Ledger) SetAccount(a domain.Account) error {
	if a.Address == "" {
		return fmt.Errorf("account address cannot be empty")
	}
	if a.Reputation > 1000 {
		a.Reputation = 1000
	}
	a.UpdatedAt = l.now()
	return l.store.UpsertAccount(a)
}

// Account returns the stored snapshot for an address, zero-valued if absent.
func (l *Ledger) Account(address string) (domain.Account, error) {
	a, err := l.store.GetAccount(address)
	if err != nil {
		return domain.Account{}, err
	}
	if a == nil {
		return domain.Account{Address: address}, nil
	}
	return *a, nil
}

// Accounts returns all stored account snapshots.
func (l *Ledger) Accounts() ([]domain.Account, error) {
	return l.store.ListAccounts()
}

// ─── Power Calculator Reads ─────────────────────────────────────────────────
// These never fail: a read error is logged and treated as zero so one bad
// row cannot block voting for everyone else.

// TokenBalance implements domain.StakeLedger.
func (l *Ledger) TokenBalance(account string) uint64 {
	return l.read(account).Balance
}

// StakedAmount implements domain.StakeLedger.
func (l *Ledger) StakedAmount(account string) uint64 {
	return l.read(account).Staked
}

// LockDuration implements domain.StakeLedger.
func (l *Ledger) LockDuration(account string) time.Duration {
	return time.Duration(l.read(account).LockDays) * 24 * time.Hour
}

// ReputationScore implements domain.ReputationService.
func (l *Ledger) ReputationScore(account string) uint64 {
	return l.read(account).Reputation
}

// ResourceContribution implements domain.ResourceMeter.
func (l *Ledger) ResourceContribution(account string) uint64 {
	return l.read(account).Resources
}

func (l *Ledger) read(account string) domain.Account {
	a, err := l.store.GetAccount(account)
	if err != nil {
		log.Printf("[ledger] read account %s: %v", account, err)
		return domain.Account{}
	}
	if a == nil {
		return domain.Account{}
	}
	return *a
}

// ─── Quorum Supply ──────────────────────────────────────────────────────────

// TotalPower sums own power across all known accounts using the given
// calculator. Delegation moves power between accounts but never changes
// this total, so it is the quorum denominator.
func (l *Ledger) TotalPower(powerOf func(account string) uint64) uint64 {
	accounts, err := l.store.ListAccounts()
	if err != nil {
		log.Printf("[ledger] list accounts for total power: %v", err)
		return 0
	}
	var total uint64
	for _, a := range accounts {
		total += powerOf(a.Address)
	}
	return total
}
