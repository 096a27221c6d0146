// Package processor implements the Image Processor (spec §4.D): for one
// job it fetches bytes through the rate-limited session, decodes and
// resizes the image, persists the thumbnail, and reports the outcome to
// the stats aggregator, always releasing its concurrency permit on the
// way out.
package processor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/openverse/image-worker/internal/imaging"
	"github.com/openverse/image-worker/internal/job"
	"github.com/openverse/image-worker/internal/metrics"
	"github.com/openverse/image-worker/internal/persist"
	"github.com/openverse/image-worker/internal/semaphore"
	"github.com/openverse/image-worker/internal/stats"
	"github.com/openverse/image-worker/internal/transport"
)

// TransportErrorStatus is the reserved status sentinel recorded when the
// underlying GET fails before a response is ever produced (network
// failure, timeout) rather than returning a non-2xx status.
const TransportErrorStatus = 0

// DecodeErrorStatus is the reserved status sentinel recorded when the
// response body could not be decoded as an image.
const DecodeErrorStatus = -1

// Processor orchestrates one job end to end.
type Processor struct {
	session   transport.Session
	persister persist.Persister
	sem       *semaphore.Semaphore
	stats     *stats.Aggregator
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	maxWidth  int
	maxHeight int
}

// New creates a Processor bound to a rate-limited session, a persister,
// the global concurrency semaphore, the stats aggregator, and the
// process-local metric set.
func New(session transport.Session, persister persist.Persister, sem *semaphore.Semaphore, agg *stats.Aggregator, mtr *metrics.Metrics, maxWidth, maxHeight int, logger zerolog.Logger) *Processor {
	return &Processor{
		session:   session,
		persister: persister,
		sem:       sem,
		stats:     agg,
		metrics:   mtr,
		logger:    logger.With().Str("component", "processor").Logger(),
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
	}
}

// Process runs the full fetch -> decode -> resize -> persist -> stats
// pipeline for j. It never returns an error for job-level failures
// (corrupt images, non-2xx statuses, persister errors) — those are
// recorded as stats events and logged. It returns an error only when
// ctx was cancelled before work began, either while waiting for the
// permit or right after acquiring it; in that case nothing else has
// happened and no stats are recorded.
func (p *Processor) Process(ctx context.Context, j job.Job) error {
	if err := p.sem.Acquire(ctx); err != nil {
		return err
	}
	defer func() { p.metrics.ProcessorsInUse.Set(float64(p.sem.InUse())) }()
	defer p.sem.Release()
	p.metrics.ProcessorsInUse.Set(float64(p.sem.InUse()))

	start := time.Now()
	defer func() { p.metrics.ProcessDuration.Observe(time.Since(start).Seconds()) }()

	if err := ctx.Err(); err != nil {
		return err
	}

	origin := j.Origin()

	resp, err := p.session.Get(ctx, j.URL)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", j.URL).Msg("fetch failed")
		p.recordError(ctx, origin, TransportErrorStatus)
		return nil
	}

	status := resp.Status()
	if status < 200 || status >= 300 {
		p.recordError(ctx, origin, status)
		return nil
	}

	body, err := resp.Read()
	if err != nil {
		p.logger.Warn().Err(err).Str("url", j.URL).Msg("reading response body failed")
		p.recordError(ctx, origin, TransportErrorStatus)
		return nil
	}

	thumb, err := safeResize(body, p.maxWidth, p.maxHeight)
	if err != nil {
		p.logger.Debug().Err(err).Str("url", j.URL).Msg("decode failed")
		p.recordError(ctx, origin, DecodeErrorStatus)
		return nil
	}

	if _, err := p.persister.Save(ctx, j.Identifier, thumb.Bytes); err != nil {
		p.logger.Warn().Err(err).Str("identifier", j.Identifier).Msg("persist failed, treating as success")
	}

	p.stats.RecordSuccess(ctx, origin)
	return nil
}

// recordError reports a fetch/decode failure to both the shared-state
// stats aggregator (the per-fleet accounting the rate limiter and
// replenisher read) and the process-local Prometheus counter.
func (p *Processor) recordError(ctx context.Context, origin string, status int) {
	p.stats.RecordError(ctx, origin, status)
	p.metrics.FetchErrors.WithLabelValues(origin, strconv.Itoa(status)).Inc()
}

// safeResize calls imaging.Resize behind a panic recovery boundary.
// Decode errors must never propagate out of Process (spec invariant 5);
// a misbehaving third-party decoder panicking on adversarial input is
// treated the same as an ordinary decode error.
func safeResize(raw []byte, maxWidth, maxHeight int) (thumb imaging.Thumbnail, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("imaging: panic during decode/resize: %v", r)
		}
	}()
	return imaging.Resize(raw, maxWidth, maxHeight)
}
