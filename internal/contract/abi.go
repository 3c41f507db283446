package contract

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	MethodFlip              = "flip"
	MethodCanFlipToday      = "canFlipToday"
	MethodGetFlipsRemaining = "getFlipsRemaining"
	MethodGetPlayerStats    = "getPlayerStats"
	MethodGetLeaderboard    = "getLeaderboard"
	MethodGetTotalPlayers   = "getTotalPlayers"
	MethodDailyFreeFlips    = "DAILY_FREE_FLIPS"

	EventCoinFlipped = "CoinFlipped"
)

// RawABI is the CoinFlip contract surface consumed by the client.
const RawABI = `[
	{"type":"function","name":"flip","stateMutability":"nonpayable",
	 "inputs":[{"name":"chooseHeads","type":"bool"}],
	 "outputs":[{"name":"won","type":"bool"}]},
	{"type":"function","name":"canFlipToday","stateMutability":"view",
	 "inputs":[{"name":"player","type":"address"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getFlipsRemaining","stateMutability":"view",
	 "inputs":[{"name":"player","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getPlayerStats","stateMutability":"view",
	 "inputs":[{"name":"player","type":"address"}],
	 "outputs":[
		{"name":"totalFlips","type":"uint256"},
		{"name":"totalWins","type":"uint256"},
		{"name":"currentStreak","type":"uint256"},
		{"name":"bestStreak","type":"uint256"},
		{"name":"canFlip","type":"bool"},
		{"name":"flipsRemaining","type":"uint256"}]},
	{"type":"function","name":"getLeaderboard","stateMutability":"view",
	 "inputs":[{"name":"limit","type":"uint256"}],
	 "outputs":[
		{"name":"players","type":"address[]"},
		{"name":"wins","type":"uint256[]"},
		{"name":"flips","type":"uint256[]"},
		{"name":"streaks","type":"uint256[]"}]},
	{"type":"function","name":"getTotalPlayers","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"DAILY_FREE_FLIPS","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"CoinFlipped","anonymous":false,
	 "inputs":[
		{"name":"player","type":"address","indexed":true},
		{"name":"chosenHeads","type":"bool","indexed":false},
		{"name":"result","type":"bool","indexed":false},
		{"name":"won","type":"bool","indexed":false},
		{"name":"totalFlips","type":"uint256","indexed":false},
		{"name":"totalWins","type":"uint256","indexed":false},
		{"name":"currentStreak","type":"uint256","indexed":false}]}
]`

var ABI = mustParseABI(RawABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Errorf("failed to parse CoinFlip ABI: %w", err))
	}
	return parsed
}

// PackFlip encodes flip(chooseHeads).
func PackFlip(chooseHeads bool) ([]byte, error) {
	data, err := ABI.Pack(MethodFlip, chooseHeads)
	if err != nil {
		return nil, fmt.Errorf("failed to pack flip call: %w", err)
	}
	return data, nil
}
