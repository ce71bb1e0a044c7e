package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(executeCmd)
}

var executeCmd = &cobra.Command{
	Use:   "execute PROPOSAL",
	Short: "Execute a queued proposal whose timelock has elapsed",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecute,
}

func runExecute(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Engine.Execute(args[0]); err != nil {
		return err
	}

	fmt.Printf("Executed proposal %s\n", args[0])
	return nil
}
