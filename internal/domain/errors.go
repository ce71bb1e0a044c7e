package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. The CLI maps each
// one to a stable exit code (internal/cli/root.go).

var (
	// Authorization errors
	ErrUnauthorized = errors.New("caller lacks required role or power threshold")

	// Proposal lifecycle errors
	ErrProposalNotFound       = errors.New("proposal not found")
	ErrInvalidState           = errors.New("operation not legal in current proposal state")
	ErrVotingClosed           = errors.New("proposal is not open for voting")
	ErrAlreadyVoted           = errors.New("already cast a vote on this proposal")
	ErrZeroPower              = errors.New("effective voting power is zero")
	ErrTimelockNotElapsed     = errors.New("timelock has not elapsed")
	ErrNotQueued              = errors.New("proposal is not queued for execution")
	ErrAlreadyExecuted        = errors.New("proposal has already been executed")
	ErrTooManyActiveProposals = errors.New("maximum active proposals reached")
	ErrVotesAlreadyCast       = errors.New("cannot cancel — votes have been cast")

	// Delegation errors
	ErrInvalidDelegationChain = errors.New("delegation would create a chain — single-level only")
	ErrNoActiveDelegation     = errors.New("account has no active delegation")

	// Circuit breaker errors
	ErrSystemPaused          = errors.New("system is paused — circuit breaker open")
	ErrRecoveryTimeoutActive = errors.New("recovery timeout has not elapsed — unpause not yet possible")
	ErrNotPaused             = errors.New("system is not paused")

	// Upgrade errors
	ErrUpgradeNotFound          = errors.New("upgrade request not found")
	ErrUpgradeSanityCheckFailed = errors.New("post-swap sanity check failed — rolled back")
	ErrUpgradeNotWithdrawable   = errors.New("upgrade request already handed off — cannot withdraw")
	ErrTargetNotRegistered      = errors.New("upgrade target has no registered implementation")

	// Parameter errors
	ErrParameterNotFound  = errors.New("governable parameter not found")
	ErrParameterImmutable = errors.New("parameter is immutable — cannot be changed by any proposal")
	ErrParameterProtected = errors.New("proposal kind is insufficient for this parameter's protection level")
	ErrParameterInvalid   = errors.New("parameter value failed validation")
)
