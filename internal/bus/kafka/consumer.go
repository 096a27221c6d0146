// Package kafka is the production franz-go implementation of bus.Consumer,
// grounded on the seed-brokers/consumer-group/manual-commit shape used for
// Kafka/Redpanda consumption elsewhere in the ecosystem.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/openverse/image-worker/internal/bus"
)

const pollTimeout = 5 * time.Second

// Consumer wraps a franz-go client configured for manual offset commits,
// so the worker only advances past a batch once every job in it has
// been dispatched to a processor.
type Consumer struct {
	client    *kgo.Client
	topic     string
	logger    zerolog.Logger
	batchSize int
	pending   []bus.Message
}

// New connects to brokers and joins group, consuming topic. Offsets are
// committed explicitly via Commit, never automatically. batchSize bounds
// the number of messages a single Poll call returns: a fetch that comes
// back with more records than that is held in an internal buffer and
// drained across subsequent Poll calls rather than handed to the loop
// all at once. batchSize <= 0 disables the cap.
func New(brokers []string, group, topic string, batchSize int, logger zerolog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
		kgo.FetchMaxWait(pollTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: creating client: %w", err)
	}
	return &Consumer{
		client:    client,
		topic:     topic,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "kafka_consumer").Str("topic", topic).Logger(),
	}, nil
}

// Poll returns up to batchSize records, waiting up to the consumer's
// fetch timeout or until ctx is cancelled. Records fetched beyond that
// cap are held in c.pending and returned by later calls instead of
// being dropped.
func (c *Consumer) Poll(ctx context.Context) ([]bus.Message, error) {
	if len(c.pending) == 0 {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil, fmt.Errorf("kafka: client closed")
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			return nil, fmt.Errorf("kafka: poll error: %w", errs[0].Err)
		}

		var out []bus.Message
		fetches.EachRecord(func(r *kgo.Record) {
			out = append(out, bus.Message{
				Topic:     r.Topic,
				Partition: r.Partition,
				Offset:    r.Offset,
				Value:     r.Value,
			})
		})
		c.pending = out
	}

	if len(c.pending) == 0 {
		return nil, nil
	}

	n := len(c.pending)
	if c.batchSize > 0 && c.batchSize < n {
		n = c.batchSize
	}
	batch := c.pending[:n]
	c.pending = c.pending[n:]
	return batch, nil
}

// Commit advances the consumer group past every message in batch with a
// single explicit CommitRecords call.
func (c *Consumer) Commit(ctx context.Context, batch []bus.Message) error {
	if len(batch) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(batch))
	for _, m := range batch {
		records = append(records, &kgo.Record{
			Topic:     m.Topic,
			Partition: m.Partition,
			Offset:    m.Offset,
		})
	}
	if err := c.client.CommitRecords(ctx, records...); err != nil {
		return fmt.Errorf("kafka: committing offsets: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *Consumer) Close() error {
	c.client.Close()
	return nil
}
