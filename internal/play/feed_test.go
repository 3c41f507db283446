package play

import (
	"context"
	"testing"
	"time"

	"github.com/onchain-coinflip/coinflip/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedKeepsNewest(t *testing.T) {
	f := newFeed()
	f.Observe(game.Snapshot{Version: 3, Phase: game.PhaseConfirming})
	f.Observe(game.Snapshot{Version: 2, Phase: game.PhasePending})

	snap, err := f.Next(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Version)
}

func TestFeedNextWaits(t *testing.T) {
	f := newFeed()
	f.Observe(game.Snapshot{Version: 1})

	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Observe(game.Snapshot{Version: 2, Phase: game.PhaseResult})
	}()

	snap, err := f.Next(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, game.PhaseResult, snap.Phase)
}

func TestFeedNextHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newFeed().Next(ctx, 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFeedSettle(t *testing.T) {
	f := newFeed()
	var progress []game.Phase

	go func() {
		for i, phase := range []game.Phase{game.PhasePending, game.PhaseConfirming, game.PhaseFlipping, game.PhaseResult} {
			f.Observe(game.Snapshot{Version: uint64(i + 11), Phase: phase})
			time.Sleep(5 * time.Millisecond)
		}
	}()

	snap, err := f.settle(context.Background(), 10, func(s game.Snapshot) {
		progress = append(progress, s.Phase)
	})
	require.NoError(t, err)
	assert.Equal(t, game.PhaseResult, snap.Phase)
	assert.NotEmpty(t, progress)
	for _, phase := range progress {
		assert.True(t, phase.InFlight())
	}
}
