package play

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/onchain-coinflip/coinflip/configs"
	"github.com/onchain-coinflip/coinflip/internal/chain"
	"github.com/onchain-coinflip/coinflip/internal/game"
	"github.com/onchain-coinflip/coinflip/internal/logger"
	"github.com/onchain-coinflip/coinflip/internal/sponsorship"
	"github.com/onchain-coinflip/coinflip/internal/wallet"
)

const simulatedChainName configs.ChainName = "simulated"

// simulatedContract receives flips on the in-memory chain. It has no code, so
// every flip succeeds without emitting an event.
var simulatedContract = common.HexToAddress("0x00000000000000000000000000000000C014F11F")

type (
	nonceReader interface {
		NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	}

	// simulatedLimits counts every transaction the player sent as a spent flip.
	simulatedLimits struct {
		nonces nonceReader
		daily  uint64
	}
)

func (l simulatedLimits) FlipsRemaining(ctx context.Context, player common.Address) (uint64, error) {
	sent, err := l.nonces.NonceAt(ctx, player, nil)
	if err != nil {
		return 0, err
	}
	if sent >= l.daily {
		return 0, nil
	}
	return l.daily - sent, nil
}

// openSimulatedSession runs the game against an in-memory chain with a funded
// throwaway key. Blocks are sealed every blockTime.
func openSimulatedSession(cfg configs.Config, seed uint64, blockTime time.Duration, observer game.Observer) (*session, error) {
	log := logger.Named("simulated_chain")

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate player key: %w", err)
	}
	player := crypto.PubkeyToAddress(key.PublicKey)

	backend := simulated.NewBackend(types.GenesisAlloc{
		player: {Balance: new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether))},
	})
	client := backend.Client()

	id, err := client.ChainID(context.Background())
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to read simulated chain id: %w", err)
	}

	registry := chain.NewRegistry(map[configs.ChainName]configs.Chain{
		simulatedChainName: {
			ID:              id.Uint64(),
			RPCURL:          "simulated",
			ContractAddress: simulatedContract.Hex(),
			UserFacing:      true,
		},
	})

	stop, done := make(chan struct{}), make(chan struct{})
	go func() {
		defer close(done)
		sealBlocks(backend, blockTime, stop, log)
	}()

	s := &session{
		evaluator: sponsorship.NewEvaluator(cfg.Paymaster.URL),
		daily:     cfg.Game.DailyFreeFlips,
	}
	s.closers = append(s.closers, func() {
		close(stop)
		<-done
		_ = backend.Close()
	})

	s.start(cfg.Game, registry, game.Dependencies{
		Wallet:   wallet.NewLocalWallet(client, key, blockTime/2, 1),
		Limits:   simulatedLimits{nonces: client, daily: cfg.Game.DailyFreeFlips},
		Resolver: game.NewSimulatedResolver(seed),
		Observer: observer,
	})

	log.With("chain_id", id.Uint64()).With("player", player.Hex()).Info("simulated chain started")

	return s, nil
}

func sealBlocks(backend *simulated.Backend, blockTime time.Duration, stop <-chan struct{}, log *slog.Logger) {
	ticker := time.NewTicker(blockTime)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			hash := backend.Commit()
			log.With("hash", hash.Hex()).Debug("sealed simulated block")
		}
	}
}
