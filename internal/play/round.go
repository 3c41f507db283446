package play

import (
	"context"
	"errors"
	"time"

	"github.com/onchain-coinflip/coinflip/internal/game"
	"github.com/onchain-coinflip/coinflip/internal/logger"
	"github.com/pterm/pterm"
)

type round struct {
	session *session
	feed    *feed
}

// play runs one attempt and renders it. A classified failure comes back as a
// FlipError with a nil error; the error is for aborts.
func (r *round) play(ctx context.Context) (*game.FlipError, error) {
	o := r.session.orchestrator
	from := o.Snapshot().Version

	spinner, _ := pterm.DefaultSpinner.Start("Processing...")

	if err := o.Flip(ctx); err != nil {
		if snap := o.Snapshot(); snap.Err != nil {
			spinner.Fail(snap.Err.Kind.Message())
			return snap.Err, nil
		}
		spinner.Fail(err.Error())
		return nil, err
	}

	snap, err := r.feed.settle(ctx, from, func(s game.Snapshot) {
		spinner.UpdateText(progressText(s))
	})
	if err != nil {
		o.Cancel()
		spinner.Fail("Flip cancelled")
		return nil, err
	}

	if snap.Result == nil {
		fe := snap.Err
		if fe == nil {
			fe = &game.FlipError{Kind: game.KindUnknown, Err: errors.New("attempt ended without a result")}
		}
		spinner.Fail(fe.Kind.Message())
		return fe, nil
	}

	spinner.Success("Flip confirmed")
	r.render(ctx, *snap.Result)

	return nil, nil
}

func (r *round) render(ctx context.Context, result game.Result) {
	o := r.session.orchestrator
	title := pterm.LightGreen(resultTitle(result))
	if !result.Won {
		title = pterm.LightRed(resultTitle(result))
	}
	pterm.DefaultBox.WithTitle(title).WithTitleTopCenter().Println(resultBody(result))

	if err := o.Refresh(ctx); err != nil {
		logger.Named("play").With("error", err).Warn("failed to refresh flips remaining")
	}
	if line := limitLine(o.Snapshot(), r.session.daily, time.Now()); line != "" {
		pterm.Info.Println(line)
	}

	x, warpcast := shareLinks(shareText(result, r.session.daily), shareURLFlag)
	pterm.Info.Printfln("Share on X: %s", x)
	pterm.Info.Printfln("Share on Warpcast: %s", warpcast)
}
