// Package replenisher implements the Token Replenisher (spec §4.F): a
// long-running background task that resets every observed origin's
// token budget to the configured cap once per second. It generalizes the
// ticker-driven start/stop shape the teacher uses for provider health
// polling, swapping the health check for an absolute token reset.
package replenisher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/openverse/image-worker/internal/sharedstate"
)

const tickInterval = 1 * time.Second

// OriginSource supplies the set of origins observed so far. The rate
// limiter's OriginRegistry satisfies this interface; the replenisher
// depends only on the narrow capability it needs.
type OriginSource interface {
	Origins() []string
}

// Replenisher resets currtokens:{origin} to maxRPS for every known origin
// once per tick. Its writes are idempotent and it holds no locks, so
// running it concurrently with fetchers racing to decrement the same
// keys is safe by construction.
type Replenisher struct {
	store   sharedstate.Store
	origins OriginSource
	maxRPS  int
	logger  zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Replenisher. Call Start to begin the background loop.
func New(store sharedstate.Store, origins OriginSource, maxRPS int, logger zerolog.Logger) *Replenisher {
	return &Replenisher{
		store:   store,
		origins: origins,
		maxRPS:  maxRPS,
		logger:  logger.With().Str("component", "replenisher").Logger(),
		done:    make(chan struct{}),
	}
}

// Start begins the background reset loop. Call Stop to shut it down.
func (r *Replenisher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go r.loop(ctx)
}

// Stop cancels the loop and waits for it to exit.
func (r *Replenisher) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	<-r.done
}

func (r *Replenisher) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reset(ctx)
		}
	}
}

func (r *Replenisher) reset(ctx context.Context) {
	for _, origin := range r.origins.Origins() {
		key := fmt.Sprintf("currtokens:%s", origin)
		if err := r.store.Set(ctx, key, r.maxRPS); err != nil {
			r.logger.Error().Err(err).Str("origin", origin).Msg("failed to reset token budget")
		}
	}
}
