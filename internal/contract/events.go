package contract

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrEventNotFound = errors.New("CoinFlipped event not found")

// FlipEvent is a decoded CoinFlipped log.
type FlipEvent struct {
	Player        common.Address
	ChosenHeads   bool
	ResultHeads   bool
	Won           bool
	TotalFlips    *big.Int
	TotalWins     *big.Int
	CurrentStreak *big.Int
	TxHash        common.Hash
}

// DecodeCoinFlipped decodes a single CoinFlipped log.
func DecodeCoinFlipped(log types.Log) (FlipEvent, error) {
	event := ABI.Events[EventCoinFlipped]

	if len(log.Topics) != 2 {
		return FlipEvent{}, fmt.Errorf("unexpected topic count %d", len(log.Topics))
	}
	if log.Topics[0] != event.ID {
		return FlipEvent{}, fmt.Errorf("log topic %s is not %s", log.Topics[0].Hex(), EventCoinFlipped)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return FlipEvent{}, fmt.Errorf("failed to unpack %s data: %w", EventCoinFlipped, err)
	}
	if len(values) != 6 {
		return FlipEvent{}, fmt.Errorf("unexpected %s field count %d", EventCoinFlipped, len(values))
	}

	out := FlipEvent{
		Player: common.BytesToAddress(log.Topics[1].Bytes()),
		TxHash: log.TxHash,
	}

	var ok bool
	if out.ChosenHeads, ok = values[0].(bool); !ok {
		return FlipEvent{}, errors.New("chosenHeads is not a bool")
	}
	if out.ResultHeads, ok = values[1].(bool); !ok {
		return FlipEvent{}, errors.New("result is not a bool")
	}
	if out.Won, ok = values[2].(bool); !ok {
		return FlipEvent{}, errors.New("won is not a bool")
	}
	if out.TotalFlips, ok = values[3].(*big.Int); !ok {
		return FlipEvent{}, errors.New("totalFlips is not a uint256")
	}
	if out.TotalWins, ok = values[4].(*big.Int); !ok {
		return FlipEvent{}, errors.New("totalWins is not a uint256")
	}
	if out.CurrentStreak, ok = values[5].(*big.Int); !ok {
		return FlipEvent{}, errors.New("currentStreak is not a uint256")
	}

	return out, nil
}

// FindCoinFlipped returns the first CoinFlipped log emitted by contractAddr for
// player. Logs from other contracts or other players are skipped.
func FindCoinFlipped(logs []*types.Log, contractAddr, player common.Address) (FlipEvent, error) {
	id := ABI.Events[EventCoinFlipped].ID
	for _, log := range logs {
		if log == nil || log.Address != contractAddr {
			continue
		}
		if len(log.Topics) == 0 || log.Topics[0] != id {
			continue
		}

		decoded, err := DecodeCoinFlipped(*log)
		if err != nil {
			return FlipEvent{}, err
		}
		if player != (common.Address{}) && decoded.Player != player {
			continue
		}
		return decoded, nil
	}

	return FlipEvent{}, ErrEventNotFound
}
