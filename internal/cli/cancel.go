package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cancelCmd.Flags().StringVar(&cancelCaller, "caller", "", "Account requesting cancellation (required)")
	cancelCmd.Flags().BoolVar(&cancelAdmin, "admin", false, "Cancel with council authority instead of as the proposer")
	cancelCmd.MarkFlagRequired("caller")
	rootCmd.AddCommand(cancelCmd)
}

var (
	cancelCaller string
	cancelAdmin  bool
)

var cancelCmd = &cobra.Command{
	Use:   "cancel PROPOSAL",
	Short: "Cancel a proposal before it executes",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Engine.Cancel(args[0], cancelCaller, cancelAdmin); err != nil {
		return err
	}

	fmt.Printf("Cancelled proposal %s\n", args[0])
	return nil
}
