package game

// Phase is the lifecycle position of the orchestrator.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseChoosing
	PhasePending
	PhaseConfirming
	PhaseFlipping
	PhaseResult
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseChoosing:
		return "choosing"
	case PhasePending:
		return "pending"
	case PhaseConfirming:
		return "confirming"
	case PhaseFlipping:
		return "flipping"
	case PhaseResult:
		return "result"
	default:
		return "unknown"
	}
}

// InFlight reports whether an attempt owns the machine in this phase.
func (p Phase) InFlight() bool {
	return p == PhasePending || p == PhaseConfirming || p == PhaseFlipping
}
