package play

import (
	"context"
	"sync"

	"github.com/onchain-coinflip/coinflip/internal/game"
)

// feed keeps the newest snapshot the orchestrator published. Observe never
// blocks, so it is safe to hand to game.Dependencies.
type feed struct {
	mu     sync.Mutex
	latest game.Snapshot
	signal chan struct{}
}

func newFeed() *feed {
	return &feed{signal: make(chan struct{}, 1)}
}

func (f *feed) Observe(snap game.Snapshot) {
	f.mu.Lock()
	if snap.Version > f.latest.Version {
		f.latest = snap
	}
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// Next blocks until a snapshot newer than after is available.
func (f *feed) Next(ctx context.Context, after uint64) (game.Snapshot, error) {
	for {
		f.mu.Lock()
		latest := f.latest
		f.mu.Unlock()
		if latest.Version > after {
			return latest, nil
		}

		select {
		case <-ctx.Done():
			return game.Snapshot{}, ctx.Err()
		case <-f.signal:
		}
	}
}

// settle follows the attempt started at version from until it leaves the
// in-flight phases. onProgress sees every in-flight snapshot.
func (f *feed) settle(ctx context.Context, from uint64, onProgress func(game.Snapshot)) (game.Snapshot, error) {
	after := from
	for {
		snap, err := f.Next(ctx, after)
		if err != nil {
			return game.Snapshot{}, err
		}
		if !snap.Phase.InFlight() {
			return snap, nil
		}
		onProgress(snap)
		after = snap.Version
	}
}
