package play

import (
	"fmt"
	"strconv"

	"github.com/onchain-coinflip/coinflip/configs"
	"github.com/onchain-coinflip/coinflip/internal/sponsorship"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var sponsorshipCmd = &cobra.Command{
	Use:   "sponsorship",
	Short: "Show whether flips from the configured wallet are gasless",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := configs.Values.Validate(); err != nil {
			return err
		}

		s, err := openSession(cmd.Context(), configs.Values, nil)
		if err != nil {
			return fmt.Errorf("failed to open game session: %w", err)
		}
		defer s.Close()

		if err := s.orchestrator.Connect(cmd.Context()); err != nil {
			return err
		}

		status, err := s.orchestrator.SponsorshipStatus(cmd.Context())
		if err != nil {
			return err
		}

		return pterm.DefaultTable.WithData(sponsorshipTable(s.evaluator.Configured(), status)).Render()
	},
}

func sponsorshipTable(configured bool, status sponsorship.Status) pterm.TableData {
	return pterm.TableData{
		{"Provider", sponsorship.Provider},
		{"Paymaster configured", strconv.FormatBool(configured)},
		{"Gasless", strconv.FormatBool(status.Available)},
		{"Reason", status.Reason},
		{"Docs", sponsorship.DocsURL},
	}
}
