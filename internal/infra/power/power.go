// Package power computes economically-weighted voting power and tracks
// single-level delegations.
//
// power = isqrt(balance) + stake·weight% + reputation·base/1000 + lock bonus + resource bonus
//
// All arithmetic is integer and truncating so recomputation is deterministic.
// The square root on the balance term dampens pure plutocracy.
package power

import (
	"sync"
	"time"

	"github.com/agora-network/agora/internal/domain"
)

// ─── Formula Defaults ───────────────────────────────────────────────────────

const (
	defaultStakeWeightPercent = 50  // stake counts at half its nominal amount
	defaultLongLockDays       = 365 // ≥ this: +50% of base; ≥ half of it: +25%
)

// ─── Calculator ─────────────────────────────────────────────────────────────

// Sources bundles the external read-only collaborators the calculator
// snapshots. Reputation and Resources may be nil (treated as zero).
type Sources struct {
	Ledger     domain.StakeLedger
	Reputation domain.ReputationService
	Resources  domain.ResourceMeter
}

// Calculator turns an account's ledger facts into a voting weight.
// It is pure given a snapshot of its sources and weights, and safe for
// concurrent use.
type Calculator struct {
	src Sources

	mu                 sync.RWMutex
	stakeWeightPercent uint64
	longLockDays       uint64
}

// NewCalculator creates a calculator over the given sources.
func NewCalculator(src Sources) *Calculator {
	return &Calculator{
		src:                src,
		stakeWeightPercent: defaultStakeWeightPercent,
		longLockDays:       defaultLongLockDays,
	}
}

// SetWeights retunes the governable formula knobs. Zero values leave the
// current setting untouched. Changes take effect on the next recomputation.
func (c *Calculator) SetWeights(stakeWeightPercent, longLockDays uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stakeWeightPercent > 0 {
		c.stakeWeightPercent = stakeWeightPercent
	}
	if longLockDays > 0 {
		c.longLockDays = longLockDays
	}
}

// Power returns the voting weight of an account. Unknown accounts resolve
// to zero power — never an error.
func (c *Calculator) Power(account string) uint64 {
	if c.src.Ledger == nil {
		return 0
	}

	c.mu.RLock()
	stakeWeight := c.stakeWeightPercent
	longLock := time.Duration(c.longLockDays) * 24 * time.Hour
	shortLock := time.Duration(c.longLockDays/2) * 24 * time.Hour
	c.mu.RUnlock()

	base := Isqrt(c.src.Ledger.TokenBalance(account))
	total := base

	// Stake at the governed weight (default 50%)
	total += c.src.Ledger.StakedAmount(account) * stakeWeight / 100

	// Reputation scales base on a 0–1000 scale
	if c.src.Reputation != nil {
		total += c.src.Reputation.ReputationScore(account) * base / 1000
	}

	// Lock bonus: half of base at the long tier, quarter at half the tier
	switch lock := c.src.Ledger.LockDuration(account); {
	case lock >= longLock:
		total += base / 2
	case lock >= shortLock:
		total += base / 4
	}

	// Resource contribution arrives pre-shaped as a monotone bonus
	if c.src.Resources != nil {
		total += c.src.Resources.ResourceContribution(account)
	}

	return total
}

// ─── Integer Square Root ────────────────────────────────────────────────────

// Isqrt returns floor(sqrt(n)) using Newton's method on integers.
// No float round-trip, so results are identical across recomputation.
func Isqrt(n uint64) uint64 {
	if n < 2 {
		return n
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}
