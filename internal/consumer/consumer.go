// Package consumer implements the Consumer Loop (spec §4.E): poll the
// bus in batches, parse jobs, dispatch each to the Image Processor under
// the global semaphore, then commit offsets for the polled batch.
package consumer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/openverse/image-worker/internal/bus"
	"github.com/openverse/image-worker/internal/job"
	"github.com/openverse/image-worker/internal/metrics"
)

// Processor is the capability the loop dispatches parsed jobs to.
type Processor interface {
	Process(ctx context.Context, j job.Job) error
}

// Loop drives the poll/dispatch/commit cycle against a bus.Consumer.
type Loop struct {
	bus       bus.Consumer
	processor Processor
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// New creates a Loop.
func New(busConsumer bus.Consumer, processor Processor, mtr *metrics.Metrics, logger zerolog.Logger) *Loop {
	return &Loop{
		bus:       busConsumer,
		processor: processor,
		metrics:   mtr,
		logger:    logger.With().Str("component", "consumer").Logger(),
	}
}

// Run drives the loop until ctx is cancelled. If terminate is true, the
// loop exits once a poll returns no messages, after waiting for every
// dispatched job from the final batch to finish; otherwise it polls
// indefinitely until ctx is cancelled.
func (l *Loop) Run(ctx context.Context, terminate bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := l.bus.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("poll failed")
			continue
		}

		if len(batch) == 0 {
			if terminate {
				return nil
			}
			continue
		}

		var wg sync.WaitGroup
		for _, msg := range batch {
			j, err := job.Parse(msg.Value)
			if err != nil {
				l.logger.Warn().Err(err).Msg("discarding malformed message")
				l.metrics.JobsDiscarded.Inc()
				continue
			}

			l.metrics.JobsDispatched.Inc()
			wg.Add(1)
			go func(j job.Job) {
				defer wg.Done()
				if err := l.processor.Process(ctx, j); err != nil {
					l.logger.Debug().Err(err).Str("identifier", j.Identifier).Msg("job not processed")
				}
			}(j)
		}

		if err := l.bus.Commit(ctx, batch); err != nil {
			l.logger.Error().Err(err).Msg("commit failed")
		}

		if terminate {
			wg.Wait()
		}
	}
}
