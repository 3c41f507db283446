package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/onchain-coinflip/coinflip/internal/logger"
)

type (
	caller interface {
		CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	}

	// Reader is the read-only accessor of a deployed CoinFlip contract.
	Reader struct {
		caller  caller
		address common.Address
		logger  *slog.Logger
	}

	PlayerStats struct {
		TotalFlips     uint64
		TotalWins      uint64
		CurrentStreak  uint64
		BestStreak     uint64
		CanFlip        bool
		FlipsRemaining uint64
	}

	LeaderboardEntry struct {
		Rank       int
		Player     common.Address
		Wins       uint64
		Flips      uint64
		BestStreak uint64
	}
)

// NewReader binds a reader to the contract at address.
func NewReader(c caller, address common.Address) *Reader {
	return &Reader{
		caller:  c,
		address: address,
		logger:  logger.Named("contract_reader"),
	}
}

func (r *Reader) Address() common.Address {
	return r.address
}

func (r *Reader) CanFlipToday(ctx context.Context, player common.Address) (bool, error) {
	values, err := r.call(ctx, MethodCanFlipToday, player)
	if err != nil {
		return false, err
	}
	return asBool(values, 0)
}

func (r *Reader) FlipsRemaining(ctx context.Context, player common.Address) (uint64, error) {
	values, err := r.call(ctx, MethodGetFlipsRemaining, player)
	if err != nil {
		return 0, err
	}
	return asUint64(values, 0)
}

func (r *Reader) PlayerStats(ctx context.Context, player common.Address) (PlayerStats, error) {
	values, err := r.call(ctx, MethodGetPlayerStats, player)
	if err != nil {
		return PlayerStats{}, err
	}

	var (
		stats PlayerStats
		errs  []error
		e     error
	)
	stats.TotalFlips, e = asUint64(values, 0)
	errs = append(errs, e)
	stats.TotalWins, e = asUint64(values, 1)
	errs = append(errs, e)
	stats.CurrentStreak, e = asUint64(values, 2)
	errs = append(errs, e)
	stats.BestStreak, e = asUint64(values, 3)
	errs = append(errs, e)
	stats.CanFlip, e = asBool(values, 4)
	errs = append(errs, e)
	stats.FlipsRemaining, e = asUint64(values, 5)
	errs = append(errs, e)

	if err := errors.Join(errs...); err != nil {
		return PlayerStats{}, fmt.Errorf("failed to decode %s: %w", MethodGetPlayerStats, err)
	}

	return stats, nil
}

func (r *Reader) Leaderboard(ctx context.Context, limit uint64) ([]LeaderboardEntry, error) {
	values, err := r.call(ctx, MethodGetLeaderboard, new(big.Int).SetUint64(limit))
	if err != nil {
		return nil, err
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("unexpected %s output count %d", MethodGetLeaderboard, len(values))
	}

	players, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("%s players is not an address array", MethodGetLeaderboard)
	}
	columns := make([][]*big.Int, 3)
	for i := range columns {
		column, ok := values[i+1].([]*big.Int)
		if !ok {
			return nil, fmt.Errorf("%s column %d is not a uint256 array", MethodGetLeaderboard, i+1)
		}
		if len(column) != len(players) {
			return nil, fmt.Errorf("%s column %d has %d rows, want %d", MethodGetLeaderboard, i+1, len(column), len(players))
		}
		columns[i] = column
	}

	entries := make([]LeaderboardEntry, 0, len(players))
	for i, player := range players {
		entries = append(entries, LeaderboardEntry{
			Rank:       i + 1,
			Player:     player,
			Wins:       columns[0][i].Uint64(),
			Flips:      columns[1][i].Uint64(),
			BestStreak: columns[2][i].Uint64(),
		})
	}

	return entries, nil
}

func (r *Reader) TotalPlayers(ctx context.Context) (uint64, error) {
	values, err := r.call(ctx, MethodGetTotalPlayers)
	if err != nil {
		return 0, err
	}
	return asUint64(values, 0)
}

func (r *Reader) DailyFreeFlips(ctx context.Context) (uint64, error) {
	values, err := r.call(ctx, MethodDailyFreeFlips)
	if err != nil {
		return 0, err
	}
	return asUint64(values, 0)
}

func (r *Reader) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	r.logger.With("method", method).With("contract", r.address.Hex()).Debug("calling contract")

	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	values, err := ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}

	return values, nil
}

func asUint64(values []any, i int) (uint64, error) {
	if i >= len(values) {
		return 0, fmt.Errorf("missing output %d", i)
	}
	v, ok := values[i].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("output %d is %T, not uint256", i, values[i])
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("output %d overflows uint64", i)
	}
	return v.Uint64(), nil
}

func asBool(values []any, i int) (bool, error) {
	if i >= len(values) {
		return false, fmt.Errorf("missing output %d", i)
	}
	v, ok := values[i].(bool)
	if !ok {
		return false, fmt.Errorf("output %d is %T, not bool", i, values[i])
	}
	return v, nil
}
