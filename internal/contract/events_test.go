package contract

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coinFlippedLog(t *testing.T, address, player common.Address, chosenHeads, resultHeads bool) *types.Log {
	t.Helper()

	event := ABI.Events[EventCoinFlipped]
	data, err := event.Inputs.NonIndexed().Pack(
		chosenHeads, resultHeads, chosenHeads == resultHeads,
		big.NewInt(5), big.NewInt(3), big.NewInt(1),
	)
	require.NoError(t, err)

	return &types.Log{
		Address: address,
		Topics:  []common.Hash{event.ID, common.BytesToHash(player.Bytes())},
		Data:    data,
		TxHash:  common.HexToHash("0xabc"),
	}
}

func TestDecodeCoinFlipped(t *testing.T) {
	log := coinFlippedLog(t, contractAddr, playerAddr, true, false)

	event, err := DecodeCoinFlipped(*log)
	require.NoError(t, err)
	assert.Equal(t, playerAddr, event.Player)
	assert.True(t, event.ChosenHeads)
	assert.False(t, event.ResultHeads)
	assert.False(t, event.Won)
	assert.Equal(t, int64(5), event.TotalFlips.Int64())
	assert.Equal(t, int64(3), event.TotalWins.Int64())
	assert.Equal(t, int64(1), event.CurrentStreak.Int64())
	assert.Equal(t, common.HexToHash("0xabc"), event.TxHash)
}

func TestDecodeCoinFlippedRejectsForeignTopic(t *testing.T) {
	log := coinFlippedLog(t, contractAddr, playerAddr, true, true)
	log.Topics[0] = common.HexToHash("0x01")

	_, err := DecodeCoinFlipped(*log)
	assert.Error(t, err)
}

func TestFindCoinFlipped(t *testing.T) {
	other := common.HexToAddress("0x3333333333333333333333333333333333333333")
	logs := []*types.Log{
		{Address: other, Topics: []common.Hash{common.HexToHash("0x01")}},
		coinFlippedLog(t, other, playerAddr, false, false),
		coinFlippedLog(t, contractAddr, other, false, true),
		coinFlippedLog(t, contractAddr, playerAddr, false, false),
	}

	event, err := FindCoinFlipped(logs, contractAddr, playerAddr)
	require.NoError(t, err)
	assert.Equal(t, playerAddr, event.Player)
	assert.True(t, event.Won)

	_, err = FindCoinFlipped(logs[:2], contractAddr, playerAddr)
	assert.ErrorIs(t, err, ErrEventNotFound)
}
