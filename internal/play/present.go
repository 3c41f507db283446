package play

import (
	"fmt"
	"net/url"
	"time"

	"github.com/onchain-coinflip/coinflip/internal/coin"
	"github.com/onchain-coinflip/coinflip/internal/game"
	"github.com/onchain-coinflip/coinflip/internal/stats"
	"github.com/onchain-coinflip/coinflip/internal/tx"
)

const (
	shareXURL        = "https://twitter.com/intent/tweet"
	shareWarpcastURL = "https://warpcast.com/~/compose"
)

func progressText(snap game.Snapshot) string {
	switch snap.Phase {
	case game.PhasePending:
		if snap.Mode == tx.ModeSponsored {
			return "Confirm gasless flip in wallet..."
		}
		return "Confirm in wallet..."
	case game.PhaseConfirming:
		return "Confirming..."
	case game.PhaseFlipping:
		return "Coin is flipping..."
	default:
		return "Processing..."
	}
}

func sideEmoji(side coin.Side) string {
	if side.IsHeads() {
		return "👑"
	}
	return "🦅"
}

func resultTitle(r game.Result) string {
	if r.Won {
		return "🎉 You Won!"
	}
	return "😔 You Lost"
}

func resultBody(r game.Result) string {
	return fmt.Sprintf("You picked %s %s\nThe coin landed %s %s", r.Choice, sideEmoji(r.Choice), r.Outcome, sideEmoji(r.Outcome))
}

// limitLine renders the daily allowance, and the countdown once it is spent.
func limitLine(snap game.Snapshot, daily uint64, now time.Time) string {
	if !snap.LimitKnown {
		return ""
	}
	line := "Flips today: " + stats.FormatRemaining(snap.FlipsRemaining, daily)
	if !snap.ComeBackLater {
		return line
	}

	line += "\nCome back tomorrow!"
	if countdown := stats.FormatCountdown(snap.TimeUntilEligible(now)); countdown != "" {
		line += "\nNext flip available in " + countdown
	}
	return line
}

func shareText(r game.Result, daily uint64) string {
	if r.Won {
		return fmt.Sprintf("🎉 I just won a coin flip on Base! 🪙%s\n\nTry your luck – %d free flips per day!", sideEmoji(r.Outcome), daily)
	}
	return fmt.Sprintf("😅 Lost my coin flip on Base... %s\n\nTomorrow I'm coming back! Try your luck:", sideEmoji(r.Outcome))
}

// shareLinks returns compose links for X and Warpcast. appURL may be empty.
func shareLinks(text, appURL string) (string, string) {
	x := url.Values{"text": {text}}
	warpcast := url.Values{"text": {text}}
	if appURL != "" {
		x.Set("url", appURL)
		warpcast.Set("embeds[]", appURL)
	}
	return shareXURL + "?" + x.Encode(), shareWarpcastURL + "?" + warpcast.Encode()
}

func errorText(fe *game.FlipError) string {
	if fe.Kind.Retryable() {
		return fe.Kind.Message() + ", you can try again"
	}
	return fe.Kind.Message()
}
