package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(delegateCmd)
	rootCmd.AddCommand(revokeCmd)
}

var delegateCmd = &cobra.Command{
	Use:   "delegate FROM TO",
	Short: "Delegate an account's voting power to another account",
	Args:  cobra.ExactArgs(2),
	RunE:  runDelegate,
}

func runDelegate(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Tracker.Delegate(args[0], args[1]); err != nil {
		return err
	}

	fmt.Printf("%s now delegates to %s\n", args[0], args[1])
	return nil
}

var revokeCmd = &cobra.Command{
	Use:   "revoke ACCOUNT",
	Short: "Revoke an account's active delegation",
	Args:  cobra.ExactArgs(1),
	RunE:  runRevoke,
}

func runRevoke(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Tracker.Revoke(args[0]); err != nil {
		return err
	}

	fmt.Printf("Delegation revoked for %s\n", args[0])
	return nil
}
