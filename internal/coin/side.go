package coin

import (
	"fmt"
	"strings"
)

// Side is a face of the coin. None means no choice has been made yet.
type Side int

const (
	None Side = iota
	Heads
	Tails
)

// FromHeads maps the contract's bool encoding (true = heads) onto a Side.
func FromHeads(heads bool) Side {
	if heads {
		return Heads
	}
	return Tails
}

func Parse(value string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "heads", "h":
		return Heads, nil
	case "tails", "t":
		return Tails, nil
	default:
		return None, fmt.Errorf("unknown side %q (want heads or tails)", value)
	}
}

// IsHeads is the argument passed to flip(chooseHeads).
func (s Side) IsHeads() bool {
	return s == Heads
}

func (s Side) Valid() bool {
	return s == Heads || s == Tails
}

func (s Side) String() string {
	switch s {
	case Heads:
		return "heads"
	case Tails:
		return "tails"
	default:
		return "none"
	}
}
