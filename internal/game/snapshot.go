package game

import (
	"time"

	"github.com/onchain-coinflip/coinflip/internal/coin"
	"github.com/onchain-coinflip/coinflip/internal/tx"
)

// Result is the frozen outcome of a finished attempt.
type Result struct {
	Choice  coin.Side
	Outcome coin.Side
	Won     bool
}

func newResult(choice, outcome coin.Side) Result {
	return Result{Choice: choice, Outcome: outcome, Won: outcome == choice}
}

// Snapshot is a render-ready copy of the orchestrator state. Version increases
// with every snapshot taken.
type Snapshot struct {
	Version            uint64
	AttemptID          string
	Phase              Phase
	ChainID            uint64
	Choice             coin.Side
	Mode               tx.Mode
	SubmissionID       string
	Result             *Result
	Err                *FlipError
	FlipsRemaining     uint64
	LimitKnown         bool
	ComeBackLater      bool
	NextEligibleAt     time.Time
	SponsorshipDemoted bool
}

// CanChoose reports whether Choose would be accepted.
func (s Snapshot) CanChoose() bool {
	if s.ComeBackLater || s.networkMismatch() {
		return false
	}
	return s.Phase == PhaseIdle || s.Phase == PhaseChoosing
}

// CanFlip reports whether Flip would be accepted.
func (s Snapshot) CanFlip() bool {
	return s.CanChoose() && s.Choice.Valid()
}

// TimeUntilEligible is the countdown to the next daily window, zero when no
// countdown applies or it has run out.
func (s Snapshot) TimeUntilEligible(now time.Time) time.Duration {
	if !s.ComeBackLater || s.NextEligibleAt.IsZero() {
		return 0
	}
	if left := s.NextEligibleAt.Sub(now); left > 0 {
		return left
	}
	return 0
}

func (s Snapshot) networkMismatch() bool {
	return s.Err != nil && s.Err.Kind == KindNetworkMismatch
}
