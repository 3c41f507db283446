package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/onchain-coinflip/coinflip/configs"
	"github.com/onchain-coinflip/coinflip/internal/chain"
	"github.com/onchain-coinflip/coinflip/internal/contract"
	"github.com/onchain-coinflip/coinflip/internal/wallet"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	playerFlag string
	limitFlag  uint64
)

var CMD = &cobra.Command{
	Use:   "stats",
	Short: "Show a player's CoinFlip statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := configs.Values.Validate(); err != nil {
			return err
		}

		player, err := resolvePlayer()
		if err != nil {
			return err
		}

		svc, closeFn, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		report, err := svc.Report(cmd.Context(), player)
		if err != nil {
			return err
		}

		pterm.DefaultSection.Println("Your Stats")
		return pterm.DefaultTable.WithData(report.Table()).Render()
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the CoinFlip leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := configs.Values.Validate(); err != nil {
			return err
		}

		svc, closeFn, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		board, err := svc.Leaderboard(cmd.Context(), limitFlag)
		if err != nil {
			return err
		}

		pterm.DefaultSection.Println("Leaderboard")
		if table := board.Table(); table != nil {
			if err := pterm.DefaultTable.WithHasHeader().WithData(table).Render(); err != nil {
				return err
			}
		}
		pterm.Info.Println(board.Summary())

		return nil
	},
}

func init() {
	CMD.Flags().StringVar(&playerFlag, "player", "", "Player address (defaults to the configured wallet)")
	leaderboardCmd.Flags().Uint64Var(&limitFlag, "limit", DefaultLeaderboardSize, "Number of leaderboard rows")
	CMD.AddCommand(leaderboardCmd)
}

func resolvePlayer() (common.Address, error) {
	if playerFlag != "" {
		if !common.IsHexAddress(playerFlag) {
			return common.Address{}, fmt.Errorf("--player %q is not a hex address", playerFlag)
		}
		return common.HexToAddress(playerFlag), nil
	}
	return wallet.ConfiguredAddress(configs.Values.Wallet)
}

func connect(ctx context.Context) (*Service, func(), error) {
	chainID := configs.Values.Game.ChainID
	registry := chain.NewRegistry(configs.Values.Chains)

	address, ok := registry.AddressFor(chainID)
	if !ok {
		return nil, nil, errors.New("contract not deployed on chain " + NetworkName(chainID))
	}

	client, entry, err := registry.Dial(ctx, chainID)
	if err != nil {
		return nil, nil, err
	}

	slog.With("chain", entry.Name).With("contract", address.Hex()).Debug("reading contract")

	return NewService(contract.NewReader(client, address), client, chainID), client.Close, nil
}
