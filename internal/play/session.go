package play

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/onchain-coinflip/coinflip/configs"
	"github.com/onchain-coinflip/coinflip/internal/chain"
	"github.com/onchain-coinflip/coinflip/internal/contract"
	"github.com/onchain-coinflip/coinflip/internal/game"
	"github.com/onchain-coinflip/coinflip/internal/sponsorship"
	"github.com/onchain-coinflip/coinflip/internal/tx"
	"github.com/onchain-coinflip/coinflip/internal/wallet"
)

// session owns everything a game needs for one command run.
type session struct {
	orchestrator *game.Orchestrator
	evaluator    *sponsorship.Evaluator
	daily        uint64
	closers      []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openSession wires the orchestrator to the configured wallet. wallet.rpc-url
// selects an EIP-5792 wallet, otherwise wallet.private-key signs locally.
func openSession(ctx context.Context, cfg configs.Config, observer game.Observer) (*session, error) {
	s := &session{
		evaluator: sponsorship.NewEvaluator(cfg.Paymaster.URL),
		daily:     cfg.Game.DailyFreeFlips,
	}
	registry := chain.NewRegistry(cfg.Chains)
	if _, ok := registry.AddressFor(cfg.Game.ChainID); !ok {
		return nil, fmt.Errorf("chain %d: %w", cfg.Game.ChainID, tx.ErrContractUnavailable)
	}

	client, entry, err := registry.Dial(ctx, cfg.Game.ChainID)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, client.Close)

	var w game.Wallet
	switch {
	case cfg.Wallet.RPCURL != "":
		address, err := wallet.ConfiguredAddress(cfg.Wallet)
		if err != nil {
			s.Close()
			return nil, err
		}
		rpcClient, err := rpc.DialContext(ctx, cfg.Wallet.RPCURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to dial wallet rpc: %w", err)
		}
		s.closers = append(s.closers, rpcClient.Close)
		w = wallet.NewRemoteWallet(rpcClient, address, cfg.Game.PollInterval)
	case cfg.Wallet.PrivateKey != "":
		key, err := wallet.ParsePrivateKey(cfg.Wallet.PrivateKey)
		if err != nil {
			s.Close()
			return nil, err
		}
		w = wallet.NewLocalWallet(client, key, cfg.Game.PollInterval, cfg.Game.Confirmations)
	default:
		s.Close()
		return nil, wallet.ErrNoAccount
	}

	s.start(cfg.Game, registry, game.Dependencies{
		Wallet:   w,
		Limits:   contract.NewReader(client, entry.Contract),
		Observer: observer,
	})

	return s, nil
}

// start fills the chain-independent dependencies and builds the orchestrator.
func (s *session) start(cfg configs.Game, registry *chain.Registry, deps game.Dependencies) {
	deps.Registry = registry
	deps.Evaluator = s.evaluator
	deps.Preparer = tx.NewPreparer(registry, s.evaluator)

	s.orchestrator = game.New(deps, game.Settings{
		FlipDelay:   cfg.FlipDelay,
		DailyWindow: cfg.DailyWindow,
	})
}
