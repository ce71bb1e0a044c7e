// Package cli implements the agora command-line interface using Cobra.
// Each subcommand maps to a governance capability (propose, vote, etc.).
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agora-network/agora/internal/daemon"
	"github.com/agora-network/agora/internal/domain"
)

var rootCmd = &cobra.Command{
	Use:   "agora",
	Short: "agora — Governance and job-aware upgrade coordination",
	Long: `agora is a governance engine for decentralized networks.
Stake-weighted proposals, delegated voting, an emergency circuit breaker,
and upgrades that wait for running jobs to drain before they apply.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// buildVersion is stamped by Execute for subcommands that open the daemon.
var buildVersion = "dev"

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	buildVersion = version
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// openDaemon loads config and wires the full runtime against local state.
func openDaemon() (*daemon.Daemon, error) {
	return daemon.New(buildVersion)
}

// exitCode maps sentinel errors to stable exit codes so scripts can branch
// on the failure class instead of parsing stderr.
func exitCode(err error) int {
	codes := []struct {
		err  error
		code int
	}{
		{domain.ErrUnauthorized, 2},
		{domain.ErrInvalidState, 3},
		{domain.ErrAlreadyVoted, 4},
		{domain.ErrTimelockNotElapsed, 5},
		{domain.ErrInvalidDelegationChain, 6},
		{domain.ErrSystemPaused, 7},
		{domain.ErrUpgradeSanityCheckFailed, 8},
		{domain.ErrZeroPower, 9},
		{domain.ErrVotingClosed, 10},
		{domain.ErrNotQueued, 11},
		{domain.ErrAlreadyExecuted, 12},
		{domain.ErrProposalNotFound, 13},
		{domain.ErrUpgradeNotFound, 14},
		{domain.ErrRecoveryTimeoutActive, 15},
		{domain.ErrTooManyActiveProposals, 16},
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return 1
}
