// Package stats records per-event counters and time-windowed error sets
// into the shared state store. All writes for one event are issued
// through a single pipeline batch so they land or fail together from the
// caller's perspective; the backend itself need not be transactional.
package stats

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/openverse/image-worker/internal/sharedstate"
)

// Window is one error-retention horizon. Label becomes part of the sorted
// set key (err{Label}:{origin}); Duration is how long entries survive.
type Window struct {
	Label    string
	Duration time.Duration
}

// DefaultWindows returns the three horizons named in the shared-state key
// schema: err60s, err1hr, err12hr.
func DefaultWindows() []Window {
	return []Window{
		{Label: "60s", Duration: 60 * time.Second},
		{Label: "1hr", Duration: time.Hour},
		{Label: "12hr", Duration: 12 * time.Hour},
	}
}

// Aggregator is the Stats Aggregator component (spec §4.B).
type Aggregator struct {
	store   sharedstate.Store
	logger  zerolog.Logger
	windows []Window
	nowFn   func() time.Time
	seq     atomic.Uint64
}

// Option configures an Aggregator at construction time.
type Option func(*Aggregator)

// WithClock overrides the time source; used in tests that need
// deterministic windowing.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.nowFn = now }
}

// New creates an Aggregator backed by store. A nil windows slice falls
// back to DefaultWindows.
func New(store sharedstate.Store, logger zerolog.Logger, windows []Window, opts ...Option) *Aggregator {
	if len(windows) == 0 {
		windows = DefaultWindows()
	}
	a := &Aggregator{
		store:   store,
		logger:  logger.With().Str("component", "stats").Logger(),
		windows: windows,
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RecordSuccess increments num_resized and num_resized:{origin}.
func (a *Aggregator) RecordSuccess(ctx context.Context, origin string) {
	pipe := a.store.Pipeline()
	pipe.Incr("num_resized")
	pipe.Incr(fmt.Sprintf("num_resized:%s", origin))
	if err := pipe.Exec(ctx); err != nil {
		a.logger.Error().Err(err).Str("origin", origin).Msg("failed to record success stats")
	}
}

// RecordError increments resize_errors, resize_errors:{origin}, and
// resize_errors:{origin}:{status}; for each configured window it adds an
// entry to err{W}:{origin} scored by the current Unix time, then trims
// entries older than the window. The trim is buffered after the insert in
// the same pipeline so a just-added event is never trimmed by its own
// call. The window predicate is inclusive-lower, exclusive-upper: an
// entry survives while score >= now - W.
func (a *Aggregator) RecordError(ctx context.Context, origin string, status int) {
	now := a.nowFn()
	ts := now.Unix()
	member := fmt.Sprintf("%d.%d", now.UnixNano(), a.seq.Add(1))

	pipe := a.store.Pipeline()
	pipe.Incr("resize_errors")
	pipe.Incr(fmt.Sprintf("resize_errors:%s", origin))
	pipe.Incr(fmt.Sprintf("resize_errors:%s:%d", origin, status))

	for _, w := range a.windows {
		key := fmt.Sprintf("err%s:%s", w.Label, origin)
		pipe.ZAdd(key, float64(ts), member)
	}
	for _, w := range a.windows {
		key := fmt.Sprintf("err%s:%s", w.Label, origin)
		cutoff := ts - int64(w.Duration/time.Second)
		// Exclusive upper bound keeps any entry scored exactly at the
		// cutoff, matching "score >= now - W".
		pipe.ZRemRangeByScore(key, "-inf", "("+strconv.FormatInt(cutoff, 10))
	}

	if err := pipe.Exec(ctx); err != nil {
		a.logger.Error().Err(err).Str("origin", origin).Int("status", status).Msg("failed to record error stats")
	}
}
