package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(powerCmd)
}

var powerCmd = &cobra.Command{
	Use:   "power ACCOUNT",
	Short: "Show an account's effective voting power",
	Args:  cobra.ExactArgs(1),
	RunE:  runPower,
}

func runPower(cmd *cobra.Command, args []string) error {
	account := args[0]

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	fmt.Printf("Account:    %s\n", account)
	fmt.Printf("Effective:  %d\n", d.Tracker.EffectivePower(account))
	fmt.Printf("Delegators: %d\n", d.Tracker.DelegatorCount(account))
	if to, ok := d.Tracker.DelegateOf(account); ok {
		fmt.Printf("Delegate:   %s\n", to)
	}

	return nil
}
