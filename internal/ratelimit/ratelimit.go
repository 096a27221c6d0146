// Package ratelimit wraps a lower-level HTTP session with a per-origin
// token acquisition step, so that every worker process in the fleet
// jointly respects one request budget per origin. The budget itself
// lives in shared state (see internal/sharedstate); this package only
// contracts the token counter and backs off cooperatively when starved.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/openverse/image-worker/internal/job"
	"github.com/openverse/image-worker/internal/sharedstate"
	"github.com/openverse/image-worker/internal/transport"
)

const (
	backoffMin = 50 * time.Millisecond
	backoffJitter = 150 * time.Millisecond
)

// Fetcher is the Rate-Limited Fetcher component (spec §4.C).
type Fetcher struct {
	session  transport.Session
	store    sharedstate.Store
	registry *OriginRegistry
	logger   zerolog.Logger
}

// New creates a Fetcher. registry is shared with the Token Replenisher so
// it knows which origins to reset.
func New(session transport.Session, store sharedstate.Store, registry *OriginRegistry, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		session:  session,
		store:    store,
		registry: registry,
		logger:   logger.With().Str("component", "fetcher").Logger(),
	}
}

// Get derives the origin from url, registers it for the replenisher,
// acquires one token for that origin (blocking cooperatively with
// backoff-and-jitter when starved), then issues the underlying GET.
// Starvation never surfaces as an error; only context cancellation,
// shared-state transport failures, and errors from the underlying GET do.
func (f *Fetcher) Get(ctx context.Context, url string) (transport.Response, error) {
	origin := job.Origin(url)
	f.registry.Observe(origin)
	key := fmt.Sprintf("currtokens:%s", origin)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		remaining, err := f.store.Decr(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("rate limiter: decrementing token budget for %s: %w", origin, err)
		}

		if remaining >= 0 {
			return f.session.Get(ctx, url)
		}

		// Starved: the replenisher's next absolute reset self-heals the
		// deficit, so we just back off and retry rather than
		// compensating with an increment here.
		select {
		case <-time.After(jitteredBackoff()):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func jitteredBackoff() time.Duration {
	return backoffMin + time.Duration(rand.Int63n(int64(backoffJitter)))
}
