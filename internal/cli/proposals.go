package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agora-network/agora/internal/domain"
)

func init() {
	proposalsCmd.Flags().StringVar(&proposalsState, "state", "", "Filter by state (pending, active, queued, ...)")
	rootCmd.AddCommand(proposalsCmd)
}

var proposalsState string

var proposalsCmd = &cobra.Command{
	Use:     "proposals",
	Aliases: []string{"ls"},
	Short:   "List governance proposals",
	RunE:    runProposals,
}

func runProposals(cmd *cobra.Command, args []string) error {
	var filter *domain.ProposalState
	if proposalsState != "" {
		state, ok := domain.ParseProposalState(strings.ToUpper(proposalsState))
		if !ok {
			return fmt.Errorf("unknown proposal state %q", proposalsState)
		}
		filter = &state
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	proposals := d.Engine.List(filter)
	if len(proposals) == 0 {
		fmt.Println("No proposals. Run 'agora propose <title>' to create one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSTATE\tFOR\tAGAINST\tCREATED\tTITLE")
	for _, p := range proposals {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			p.ID,
			p.Kind,
			p.State,
			p.VotesFor,
			p.VotesAgainst,
			p.CreatedAt.Format("2006-01-02 15:04"),
			p.Title,
		)
	}
	return w.Flush()
}
