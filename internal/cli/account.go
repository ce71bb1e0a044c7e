package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	accountCmd.Flags().Uint64Var(&accountBalance, "balance", 0, "Token balance")
	accountCmd.Flags().Uint64Var(&accountStaked, "staked", 0, "Staked amount")
	accountCmd.Flags().Uint64Var(&accountLockDays, "lock-days", 0, "Stake lock duration in days")
	accountCmd.Flags().Uint64Var(&accountReputation, "reputation", 0, "Reputation score (0-1000)")
	accountCmd.Flags().Uint64Var(&accountResources, "resources", 0, "Resource contribution score")
	rootCmd.AddCommand(accountCmd)
}

var (
	accountBalance    uint64
	accountStaked     uint64
	accountLockDays   uint64
	accountReputation uint64
	accountResources  uint64
)

var accountCmd = &cobra.Command{
	Use:   "account ADDRESS",
	Short: "Show or update a ledger account",
	Long: `Show an account's ledger facts. With flags, update the given fields
and leave the rest untouched. Local admin operation.`,
	Args: cobra.ExactArgs(1),
	RunE: runAccount,
}

func runAccount(cmd *cobra.Command, args []string) error {
	address := args[0]

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	a, err := d.Ledger.Account(address)
	if err != nil {
		return err
	}
	a.Address = address

	changed := false
	if cmd.Flags().Changed("balance") {
		a.Balance = accountBalance
		changed = true
	}
	if cmd.Flags().Changed("staked") {
		a.Staked = accountStaked
		changed = true
	}
	if cmd.Flags().Changed("lock-days") {
		a.LockDays = accountLockDays
		changed = true
	}
	if cmd.Flags().Changed("reputation") {
		a.Reputation = accountReputation
		changed = true
	}
	if cmd.Flags().Changed("resources") {
		a.Resources = accountResources
		changed = true
	}
	if changed {
		if err := d.Ledger.SetAccount(a); err != nil {
			return err
		}
		a, _ = d.Ledger.Account(address)
	}

	fmt.Printf("Address:    %s\n", a.Address)
	fmt.Printf("Balance:    %d\n", a.Balance)
	fmt.Printf("Staked:     %d\n", a.Staked)
	fmt.Printf("Lock days:  %d\n", a.LockDays)
	fmt.Printf("Reputation: %d\n", a.Reputation)
	fmt.Printf("Resources:  %d\n", a.Resources)

	return nil
}
