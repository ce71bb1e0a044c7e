package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agora-network/agora/internal/domain"
)

func init() {
	proposeCmd.Flags().StringVar(&proposeProposer, "proposer", "", "Proposing account (required)")
	proposeCmd.Flags().StringVar(&proposeKind, "kind", "standard", "Proposal kind: emergency, critical, standard, parameter, upgrade")
	proposeCmd.Flags().StringVar(&proposeDescription, "description", "", "Longer proposal description")
	proposeCmd.Flags().BoolVar(&proposeOpen, "open", false, "Open voting immediately")
	proposeCmd.Flags().StringVar(&proposeUpgradeTarget, "upgrade-target", "", "Target component for an upgrade action")
	proposeCmd.Flags().StringVar(&proposeUpgradeImpl, "upgrade-impl", "", "New implementation ID for an upgrade action")
	proposeCmd.Flags().StringVar(&proposeParamKey, "param-key", "", "Parameter key for a set_param action")
	proposeCmd.Flags().StringVar(&proposeParamValue, "param-value", "", "New value for a set_param action")
	proposeCmd.MarkFlagRequired("proposer")
	rootCmd.AddCommand(proposeCmd)
}

var (
	proposeProposer      string
	proposeKind          string
	proposeDescription   string
	proposeOpen          bool
	proposeUpgradeTarget string
	proposeUpgradeImpl   string
	proposeParamKey      string
	proposeParamValue    string
)

var proposeCmd = &cobra.Command{
	Use:   "propose TITLE",
	Short: "Create a governance proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  runPropose,
}

func runPropose(cmd *cobra.Command, args []string) error {
	kind, ok := domain.ParseProposalKind(strings.ToUpper(proposeKind))
	if !ok {
		return fmt.Errorf("unknown proposal kind %q", proposeKind)
	}

	var actions []domain.Action
	if proposeUpgradeTarget != "" || proposeUpgradeImpl != "" {
		if proposeUpgradeTarget == "" || proposeUpgradeImpl == "" {
			return fmt.Errorf("--upgrade-target and --upgrade-impl must be set together")
		}
		actions = append(actions, domain.Action{
			Target:  proposeUpgradeTarget,
			Method:  domain.ActionUpgrade,
			Payload: proposeUpgradeImpl,
		})
	}
	if proposeParamKey != "" || proposeParamValue != "" {
		if proposeParamKey == "" || proposeParamValue == "" {
			return fmt.Errorf("--param-key and --param-value must be set together")
		}
		actions = append(actions, domain.Action{
			Target:  proposeParamKey,
			Method:  domain.ActionSetParam,
			Payload: proposeParamValue,
		})
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	p, err := d.Engine.Propose(proposeProposer, kind, args[0], proposeDescription, actions)
	if err != nil {
		return err
	}
	if proposeOpen {
		if err := d.Engine.Open(p.ID); err != nil {
			return err
		}
		p, _ = d.Engine.Get(p.ID)
	}

	fmt.Printf("Created proposal %s (%s, %s)\n", p.ID, p.Kind, p.State)
	return nil
}
