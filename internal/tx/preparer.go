package tx

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/onchain-coinflip/coinflip/internal/coin"
	"github.com/onchain-coinflip/coinflip/internal/contract"
	"github.com/onchain-coinflip/coinflip/internal/logger"
	"github.com/onchain-coinflip/coinflip/internal/sponsorship"
)

var (
	ErrContractUnavailable      = errors.New("contract not available on this chain")
	ErrSponsorshipNotConfigured = errors.New("sponsorship not configured")
	ErrNoChoice                 = errors.New("no side chosen")
)

type (
	addressResolver interface {
		AddressFor(chainID uint64) (common.Address, bool)
	}
	paymasterSource interface {
		Service() (sponsorship.PaymasterService, bool)
	}

	// Preparer builds flip descriptors. It never looks at wallet capabilities;
	// those are checked upstream before a sponsored descriptor is requested.
	Preparer struct {
		registry  addressResolver
		paymaster paymasterSource
		logger    *slog.Logger
	}
)

func NewPreparer(registry addressResolver, paymaster paymasterSource) *Preparer {
	return &Preparer{
		registry:  registry,
		paymaster: paymaster,
		logger:    logger.Named("tx_preparer"),
	}
}

func (p *Preparer) PrepareRegular(side coin.Side, chainID uint64) (Descriptor, error) {
	call, err := p.flipCall(side, chainID)
	if err != nil {
		return Descriptor{}, err
	}

	return Descriptor{
		Mode:    ModeRegular,
		ChainID: chainID,
		Calls:   []Call{call},
	}, nil
}

func (p *Preparer) PrepareSponsored(side coin.Side, chainID uint64) (Descriptor, error) {
	call, err := p.flipCall(side, chainID)
	if err != nil {
		return Descriptor{}, err
	}

	service, ok := p.paymaster.Service()
	if !ok {
		return Descriptor{}, ErrSponsorshipNotConfigured
	}

	return Descriptor{
		Mode:      ModeSponsored,
		ChainID:   chainID,
		Calls:     []Call{call},
		Paymaster: &service,
	}, nil
}

func (p *Preparer) flipCall(side coin.Side, chainID uint64) (Call, error) {
	if !side.Valid() {
		return Call{}, ErrNoChoice
	}

	address, ok := p.registry.AddressFor(chainID)
	if !ok {
		p.logger.With("chain_id", chainID).Warn("contract address not available for chain")
		return Call{}, fmt.Errorf("chain %d: %w", chainID, ErrContractUnavailable)
	}

	data, err := contract.PackFlip(side.IsHeads())
	if err != nil {
		return Call{}, err
	}

	return Call{
		To:          address,
		Function:    contract.MethodFlip,
		ChooseHeads: side.IsHeads(),
		Data:        data,
	}, nil
}
