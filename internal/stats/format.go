package stats

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WinRate is wins/flips as a whole percentage, rounded half away from zero.
func WinRate(wins, flips uint64) uint64 {
	if flips == 0 {
		return 0
	}
	return uint64(math.Round(float64(wins) / float64(flips) * 100))
}

// ShortAddress renders 0x1234…abcd.
func ShortAddress(address common.Address) string {
	hex := address.Hex()
	return hex[:6] + "…" + hex[len(hex)-4:]
}

// FormatCountdown renders HHh MMm SSs, or "" once the countdown is over.
func FormatCountdown(left time.Duration) string {
	if left <= 0 {
		return ""
	}

	total := int64(left.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02dh %02dm %02ds", total/3600, (total%3600)/60, total%60)
}

func FormatRemaining(remaining, daily uint64) string {
	return fmt.Sprintf("%d/%d", remaining, daily)
}

// RankLabel is the medal for the podium and #n below it.
func RankLabel(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("#%d", rank)
	}
}

// FormatETH renders a wei amount in ETH with four decimals.
func FormatETH(wei *big.Int) string {
	eth := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		new(big.Float).SetInt(big.NewInt(1e18)),
	)
	return fmt.Sprintf("%.4f ETH", eth)
}
