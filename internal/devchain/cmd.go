package devchain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/onchain-coinflip/coinflip/configs"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var CMD = &cobra.Command{
	Use:   "devchain",
	Short: "Manage the local anvil chain",
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the local anvil chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, s *Service) error {
			if err := s.Up(ctx); err != nil {
				return fmt.Errorf("error occurred starting devchain: %w", err)
			}
			pterm.Success.Printfln("devchain %d listening on %s", configs.Values.DevChain.ChainID, RPCURL(configs.Values.DevChain))
			return nil
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Remove the local anvil chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, s *Service) error {
			return s.Down(ctx)
		})
	},
}

func init() {
	CMD.AddCommand(upCmd)
	CMD.AddCommand(downCmd)
}

func withService(ctx context.Context, fn func(context.Context, *Service) error) error {
	slog.Info("validating devchain config", slog.Any("config", configs.Values.DevChain))

	if err := configs.Values.DevChain.Validate(); err != nil {
		return err
	}

	client, err := New()
	if err != nil {
		return fmt.Errorf("failed to create docker client: %w", err)
	}
	defer client.Close()

	return fn(ctx, NewService(client, configs.Values.DevChain))
}
