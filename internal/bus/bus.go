// Package bus defines the message-bus capability the Consumer Loop
// depends on (spec §4.E, §4.K): poll a batch of raw messages, and commit
// offsets only once every message in the batch has been dispatched.
// Production code is backed by Kafka/Redpanda via franz-go (see
// internal/bus/kafka); tests inject an in-memory fake.
package bus

import "context"

// Message is one raw record pulled off the bus.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Value     []byte
}

// Consumer polls batches of messages and commits offsets once every
// message of a batch has been dispatched. Implementations are not required to be safe
// for concurrent use from more than one goroutine at a time.
type Consumer interface {
	// Poll blocks until at least one message is available, ctx is
	// cancelled, or the consumer's own poll timeout elapses, whichever
	// happens first. An empty, nil-error result means the timeout
	// elapsed with nothing to deliver.
	Poll(ctx context.Context) ([]Message, error)
	// Commit advances the consumer group's offsets past every message
	// in batch. Called once every message in batch has been dispatched;
	// processing of those messages may still be in progress.
	Commit(ctx context.Context, batch []Message) error
	Close() error
}
