package tx

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/onchain-coinflip/coinflip/internal/sponsorship"
)

// Mode is how a flip is submitted. It is fixed for the lifetime of an attempt.
type Mode int

const (
	ModeRegular Mode = iota
	ModeSponsored
)

func (m Mode) String() string {
	if m == ModeSponsored {
		return "sponsored"
	}
	return "regular"
}

type (
	// Call is one contract invocation.
	Call struct {
		To          common.Address
		Function    string
		ChooseHeads bool
		Data        []byte
	}

	// Descriptor is a submittable flip. Regular descriptors carry exactly one
	// call; sponsored descriptors carry a one-call bundle plus the paymaster
	// capability the wallet must attach.
	Descriptor struct {
		Mode      Mode
		ChainID   uint64
		Calls     []Call
		Paymaster *sponsorship.PaymasterService
	}
)

// Call returns the flip call of the descriptor.
func (d Descriptor) Call() Call {
	if len(d.Calls) == 0 {
		return Call{}
	}
	return d.Calls[0]
}
