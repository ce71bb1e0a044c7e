package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	pauseCmd.Flags().StringSliceVar(&pauseSigners, "signer", nil, "Council signer (repeat for M-of-N)")
	pauseCmd.MarkFlagRequired("signer")
	unpauseCmd.Flags().StringSliceVar(&unpauseSigners, "signer", nil, "Council signer (repeat for M-of-N)")
	unpauseCmd.MarkFlagRequired("signer")
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(unpauseCmd)
}

var (
	pauseSigners   []string
	unpauseSigners []string
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Trigger the emergency pause (council M-of-N)",
	RunE:  runPause,
}

func runPause(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Breaker.Pause(pauseSigners); err != nil {
		return err
	}

	fmt.Println("System paused. Only emergency proposals may proceed.")
	return nil
}

var unpauseCmd = &cobra.Command{
	Use:   "unpause",
	Short: "Lift the emergency pause (council M-of-N, after recovery timeout)",
	RunE:  runUnpause,
}

func runUnpause(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Breaker.Unpause(unpauseSigners); err != nil {
		return err
	}

	fmt.Println("System unpaused. Normal governance resumed.")
	return nil
}
