package stats

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/onchain-coinflip/coinflip/internal/contract"
	"github.com/onchain-coinflip/coinflip/internal/logger"
	"github.com/pterm/pterm"
)

// DefaultLeaderboardSize matches the number of rows the game shows.
const DefaultLeaderboardSize = 10

type (
	reader interface {
		PlayerStats(ctx context.Context, player common.Address) (contract.PlayerStats, error)
		CanFlipToday(ctx context.Context, player common.Address) (bool, error)
		DailyFreeFlips(ctx context.Context) (uint64, error)
		Leaderboard(ctx context.Context, limit uint64) ([]contract.LeaderboardEntry, error)
		TotalPlayers(ctx context.Context) (uint64, error)
	}

	balanceReader interface {
		BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	}

	Service struct {
		reader   reader
		balances balanceReader
		network  string
		logger   *slog.Logger
	}

	Report struct {
		Player         common.Address
		Network        string
		Stats          contract.PlayerStats
		WinRate        uint64
		DailyFreeFlips uint64
		CanFlipToday   bool
		// Balance is the player's gas balance in wei, nil when unknown.
		Balance *big.Int
	}

	Row struct {
		Rank       int
		Player     common.Address
		Wins       uint64
		Flips      uint64
		BestStreak uint64
		WinRate    uint64
	}

	Board struct {
		Network      string
		TotalPlayers uint64
		Rows         []Row
	}
)

// NewService reads from r. balances may be nil, the report then omits the gas
// balance.
func NewService(r reader, balances balanceReader, chainID uint64) *Service {
	return &Service{
		reader:   r,
		balances: balances,
		network:  NetworkName(chainID),
		logger:   logger.Named("stats"),
	}
}

// NetworkName is the display name of a chain id.
func NetworkName(chainID uint64) string {
	switch chainID {
	case 8453:
		return "Base"
	case 84532:
		return "Base Sepolia"
	default:
		return "chain " + strconv.FormatUint(chainID, 10)
	}
}

func (s *Service) Report(ctx context.Context, player common.Address) (Report, error) {
	stats, err := s.reader.PlayerStats(ctx, player)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read player stats: %w", err)
	}
	daily, err := s.reader.DailyFreeFlips(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read daily free flips: %w", err)
	}
	canFlip, err := s.reader.CanFlipToday(ctx, player)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read flip eligibility: %w", err)
	}

	s.logger.With("player", player.Hex()).With("flips", stats.TotalFlips).Debug("player stats loaded")

	report := Report{
		Player:         player,
		Network:        s.network,
		Stats:          stats,
		WinRate:        WinRate(stats.TotalWins, stats.TotalFlips),
		DailyFreeFlips: daily,
		CanFlipToday:   canFlip,
	}

	if s.balances != nil {
		balance, err := s.balances.BalanceAt(ctx, player, nil)
		if err != nil {
			s.logger.With("player", player.Hex()).With("error", err).Warn("failed to read gas balance")
		} else {
			report.Balance = balance
		}
	}

	return report, nil
}

func (s *Service) Leaderboard(ctx context.Context, limit uint64) (Board, error) {
	if limit == 0 {
		limit = DefaultLeaderboardSize
	}

	entries, err := s.reader.Leaderboard(ctx, limit)
	if err != nil {
		return Board{}, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	total, err := s.reader.TotalPlayers(ctx)
	if err != nil {
		return Board{}, fmt.Errorf("failed to read total players: %w", err)
	}

	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Row{
			Rank:       e.Rank,
			Player:     e.Player,
			Wins:       e.Wins,
			Flips:      e.Flips,
			BestStreak: e.BestStreak,
			WinRate:    WinRate(e.Wins, e.Flips),
		})
	}

	s.logger.With("rows", len(rows)).With("total_players", total).Debug("leaderboard loaded")

	return Board{Network: s.network, TotalPlayers: total, Rows: rows}, nil
}

// Table lays the report out as label/value pairs.
func (r Report) Table() pterm.TableData {
	status := "⏰ Flipped today"
	if r.CanFlipToday {
		status = "✓ Ready to flip"
	}

	data := pterm.TableData{
		{"Player", ShortAddress(r.Player)},
		{"Network", r.Network},
		{"Flips", strconv.FormatUint(r.Stats.TotalFlips, 10)},
		{"Wins", strconv.FormatUint(r.Stats.TotalWins, 10)},
		{"Win Rate", fmt.Sprintf("%d%%", r.WinRate)},
		{"Streak", strconv.FormatUint(r.Stats.CurrentStreak, 10)},
	}
	if r.Stats.BestStreak > 0 {
		data = append(data, []string{"Best streak", fmt.Sprintf("%d wins", r.Stats.BestStreak)})
	}
	data = append(data,
		[]string{"Flips left today", FormatRemaining(r.Stats.FlipsRemaining, r.DailyFreeFlips)},
		[]string{"Status", status},
	)
	if r.Balance != nil {
		data = append(data, []string{"Gas balance", FormatETH(r.Balance)})
	}

	return data
}

// Table lays the board out with a header row. It is nil for an empty board.
func (b Board) Table() pterm.TableData {
	if len(b.Rows) == 0 {
		return nil
	}

	data := pterm.TableData{{"Rank", "Player", "Wins", "Rate", "Best"}}
	for _, row := range b.Rows {
		best := ""
		if row.BestStreak > 0 {
			best = fmt.Sprintf("%d🔥", row.BestStreak)
		}
		data = append(data, []string{
			RankLabel(row.Rank),
			ShortAddress(row.Player),
			strconv.FormatUint(row.Wins, 10),
			fmt.Sprintf("%d%%", row.WinRate),
			best,
		})
	}

	return data
}

func (b Board) Summary() string {
	if len(b.Rows) == 0 {
		return "No players yet on " + b.Network
	}
	return fmt.Sprintf("%d players on %s", b.TotalPlayers, b.Network)
}
