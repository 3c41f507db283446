package output

import (
	"log/slog"

	"github.com/onchain-coinflip/coinflip/configs"
	"github.com/onchain-coinflip/coinflip/internal/chain"
	"github.com/onchain-coinflip/coinflip/internal/sponsorship"
	"github.com/spf13/cobra"
)

var pathFlag string

var CMD = &cobra.Command{
	Use:   "export",
	Short: "Write the CoinFlip deployment registry as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := configs.Values.Validate(); err != nil {
			return err
		}

		g := NewGenerator(
			chain.NewRegistry(configs.Values.Chains),
			sponsorship.NewEvaluator(configs.Values.Paymaster.URL),
			configs.Values.Game.DailyFreeFlips,
		)
		if err := g.Generate(pathFlag); err != nil {
			return err
		}

		slog.With("path", pathFlag).Info("export finished")
		return nil
	},
}

func init() {
	CMD.Flags().StringVarP(&pathFlag, "output", "o", DefaultFileName, "Output file")
}
