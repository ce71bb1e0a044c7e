package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agora-network/agora/internal/domain"
)

func init() {
	voteCmd.Flags().StringVar(&voteVoter, "voter", "", "Voting account (required)")
	voteCmd.Flags().StringVar(&voteSide, "side", "for", "Vote side: for, against, abstain")
	voteCmd.MarkFlagRequired("voter")
	rootCmd.AddCommand(voteCmd)
}

var (
	voteVoter string
	voteSide  string
)

var voteCmd = &cobra.Command{
	Use:   "vote PROPOSAL",
	Short: "Cast a stake-weighted vote on an active proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  runVote,
}

func runVote(cmd *cobra.Command, args []string) error {
	side, ok := domain.ParseVoteSide(strings.ToUpper(voteSide))
	if !ok {
		return fmt.Errorf("unknown vote side %q", voteSide)
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	record, err := d.Engine.Vote(args[0], voteVoter, side)
	if err != nil {
		return err
	}

	fmt.Printf("Vote recorded: %s voted %s with weight %d\n", record.Voter, record.Side, record.Weight)
	return nil
}
