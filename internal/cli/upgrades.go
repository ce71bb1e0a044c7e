package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	upgradesCmd.AddCommand(upgradesWithdrawCmd)
	rootCmd.AddCommand(upgradesCmd)
}

var upgradesCmd = &cobra.Command{
	Use:   "upgrades",
	Short: "List scheduled implementation upgrades",
	RunE:  runUpgrades,
}

func runUpgrades(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	requests := d.Scheduler.List()
	if len(requests) == 0 {
		fmt.Println("No upgrade requests.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTARGET\tIMPLEMENTATION\tPHASE\tFORCED\tATTEMPTS\tREQUESTED")
	for _, r := range requests {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%d\t%s\n",
			r.ID,
			r.Target,
			r.NewImplementationID,
			r.Phase,
			r.Forced,
			r.Attempts,
			r.RequestedAt.Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}

var upgradesWithdrawCmd = &cobra.Command{
	Use:   "withdraw REQUEST",
	Short: "Withdraw a pending upgrade request",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpgradesWithdraw,
}

func runUpgradesWithdraw(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Scheduler.Withdraw(args[0]); err != nil {
		return err
	}

	fmt.Printf("Withdrew upgrade request %s\n", args[0])
	return nil
}
