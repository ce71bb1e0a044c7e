package domain

import "time"

// ─── External Collaborators ─────────────────────────────────────────────────
// The governance engine never owns these facts — it reads them as
// point-in-time snapshots. Reads are assumed eventually consistent; the
// upgrade scheduler's grace-period re-check absorbs that staleness.

// StakeLedger exposes the token/stake facts of an account.
// Unknown accounts return zero values, never errors.
type StakeLedger interface {
	TokenBalance(account string) uint64
	StakedAmount(account string) uint64
	LockDuration(account string) time.Duration
}

// ReputationService scores accounts on a 0–1000 scale.
type ReputationService interface {
	ReputationScore(account string) uint64
}

// ResourceMeter reports an account's contributed-resource bonus.
// The returned value is already a power bonus, monotone in contribution.
type ResourceMeter interface {
	ResourceContribution(account string) uint64
}

// JobRegistry exposes the live computational-job activity the upgrade
// scheduler must not interrupt.
type JobRegistry interface {
	// ActiveJobCount returns the number of currently running jobs.
	ActiveJobCount() uint

	// Completions returns a channel receiving a job ID whenever a job
	// finishes. The scheduler uses it to re-evaluate between poll ticks.
	Completions() <-chan string

	// Starts returns the monotone count of jobs ever started. The
	// scheduler compares it across evaluations so a job that starts and
	// finishes within one poll interval still resets the zero-job streak.
	Starts() uint64
}

// ImplementationRegistry holds the "current implementation" pointer per
// target. Written only by the upgrade executor.
type ImplementationRegistry interface {
	GetImplementation(target string) (string, error)
	SetImplementation(target, id string) error
}

// Council is the externally managed emergency council membership.
type Council interface {
	IsMember(account string) bool
	Required() int // signatures needed (M of N)
	Size() int
}
