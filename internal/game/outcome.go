package game

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/onchain-coinflip/coinflip/internal/coin"
	"github.com/onchain-coinflip/coinflip/internal/contract"
	"github.com/onchain-coinflip/coinflip/internal/tx"
)

type (
	// Attempt is the read-only view of a flip handed to outcome resolution.
	Attempt struct {
		ID       string
		Choice   coin.Side
		Mode     tx.Mode
		ChainID  uint64
		Player   common.Address
		Contract common.Address
	}

	// OutcomeResolver turns the finalized logs of an attempt into the side the
	// coin landed on. It is the only place the outcome comes from.
	OutcomeResolver interface {
		Resolve(attempt Attempt, logs []*types.Log) (coin.Side, error)
	}

	ResolverFunc func(attempt Attempt, logs []*types.Log) (coin.Side, error)

	// EventResolver reads the outcome from the CoinFlipped event.
	EventResolver struct{}

	// SimulatedResolver draws the outcome locally and ignores the chain. It backs
	// offline play and must not be used against a deployed contract.
	SimulatedResolver struct {
		mu  sync.Mutex
		rng *rand.Rand
	}
)

func (f ResolverFunc) Resolve(attempt Attempt, logs []*types.Log) (coin.Side, error) {
	return f(attempt, logs)
}

func (EventResolver) Resolve(attempt Attempt, logs []*types.Log) (coin.Side, error) {
	event, err := contract.FindCoinFlipped(logs, attempt.Contract, attempt.Player)
	if err != nil {
		return coin.None, err
	}

	if event.ChosenHeads != attempt.Choice.IsHeads() {
		return coin.None, fmt.Errorf("event records %s but attempt chose %s", coin.FromHeads(event.ChosenHeads), attempt.Choice)
	}

	return coin.FromHeads(event.ResultHeads), nil
}

func NewSimulatedResolver(seed uint64) *SimulatedResolver {
	return &SimulatedResolver{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *SimulatedResolver) Resolve(Attempt, []*types.Log) (coin.Side, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rng.IntN(2) == 0 {
		return coin.Heads, nil
	}
	return coin.Tails, nil
}
