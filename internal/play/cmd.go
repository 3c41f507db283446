package play

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/onchain-coinflip/coinflip/configs"
	"github.com/onchain-coinflip/coinflip/internal/coin"
	"github.com/onchain-coinflip/coinflip/internal/game"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var CMD = &cobra.Command{
	Use:   "play",
	Short: "Flip the coin",
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.Info("starting play command. Validating config")

		if err := configs.Values.Validate(); err != nil {
			return err
		}
		if simulateFlag && blockTimeFlag <= 0 {
			return errors.New("--block-time must be greater than 0")
		}

		return start(cmd.Context())
	},
}

func start(ctx context.Context) error {
	f := newFeed()

	var (
		s   *session
		err error
	)
	if simulateFlag {
		s, err = openSimulatedSession(configs.Values, seedFlag, blockTimeFlag, f.Observe)
	} else {
		s, err = openSession(ctx, configs.Values, f.Observe)
	}
	if err != nil {
		return fmt.Errorf("failed to open game session: %w", err)
	}
	defer s.Close()

	if err := s.orchestrator.Connect(ctx); err != nil {
		if snap := s.orchestrator.Snapshot(); snap.Err != nil {
			pterm.Error.Println(errorText(snap.Err))
		}
		return err
	}

	interactive := sideFlag == ""
	r := &round{session: s, feed: f}

	for retry := false; ; {
		snap := s.orchestrator.Snapshot()
		if snap.ComeBackLater {
			pterm.Warning.Println(limitLine(snap, s.daily, time.Now()))
			return nil
		}

		if !retry {
			side, err := pickSide(interactive)
			if err != nil {
				return err
			}
			if err := s.orchestrator.Choose(side); err != nil {
				if errors.Is(err, game.ErrNoFlipsRemaining) {
					pterm.Warning.Println(limitLine(s.orchestrator.Snapshot(), s.daily, time.Now()))
					return nil
				}
				return err
			}
		}

		if status, err := s.orchestrator.SponsorshipStatus(ctx); err == nil && status.Available {
			pterm.Info.Println("⚡ Gasless flip: " + status.Reason)
		}

		flipErr, err := r.play(ctx)
		if err != nil {
			return err
		}

		prompt := "Flip again?"
		if flipErr != nil {
			pterm.Error.Println(errorText(flipErr))
			if !interactive || !flipErr.Kind.Retryable() {
				return flipErr
			}
			prompt = "Try again?"
		}
		if !interactive {
			return nil
		}

		again, _ := pterm.DefaultInteractiveConfirm.WithDefaultText(prompt).WithDefaultValue(true).Show()
		if !again {
			return nil
		}

		retry = flipErr != nil
		if !retry {
			if err := s.orchestrator.PlayAgain(); err != nil {
				if errors.Is(err, game.ErrNoFlipsRemaining) {
					pterm.Warning.Println(limitLine(s.orchestrator.Snapshot(), s.daily, time.Now()))
					return nil
				}
				return err
			}
		}
	}
}

func pickSide(interactive bool) (coin.Side, error) {
	if !interactive {
		return coin.Parse(sideFlag)
	}

	selected, err := pterm.DefaultInteractiveSelect.
		WithDefaultText("Call it").
		WithOptions([]string{"Heads 👑", "Tails 🦅"}).
		Show()
	if err != nil {
		return coin.None, fmt.Errorf("failed to read side: %w", err)
	}

	return coin.FromHeads(selected == "Heads 👑"), nil
}
