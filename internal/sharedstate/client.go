// Package sharedstate is a thin typed facade over the external key-value
// store (Redis) that the worker fleet uses to coordinate rate limits and
// statistics across processes. Unknown keys behave as if initialized to
// zero (counters) or empty (lists/sets); transport errors are surfaced to
// the caller and never retried here.
package sharedstate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the capability the rest of the worker depends on. The
// production implementation is Client (backed by go-redis); tests use an
// in-memory fake that satisfies the same interface.
type Store interface {
	Set(ctx context.Context, key string, value interface{}) error
	Incr(ctx context.Context, key string) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)
	Pipeline() Pipeline
}

// Pipeline buffers operations and commits them as a single batched
// round-trip when Exec is called. Operations are committed in the order
// they were buffered.
type Pipeline interface {
	Incr(key string)
	RPush(key string, value interface{})
	ZAdd(key string, score float64, member string)
	ZRemRangeByScore(key string, min, max string)
	Exec(ctx context.Context) error
}

// Client is the production Store, backed by a Redis server shared by every
// worker process in the fleet.
type Client struct {
	rdb *redis.Client
}

// New creates a Store from a redis:// URL. Returns an error if the URL
// cannot be parsed.
func New(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return &Client{rdb: redis.NewClient(opt)}, nil
}

// Ping verifies connectivity, used by the admin server's readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Set(ctx context.Context, key string, value interface{}) error {
	return c.rdb.Set(ctx, key, value, 0).Err()
}

func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, key).Result()
}

func (c *Client) Decr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Decr(ctx, key).Result()
}

func (c *Client) Pipeline() Pipeline {
	return &redisPipeline{p: c.rdb.Pipeline()}
}

type redisPipeline struct {
	p redis.Pipeliner
}

func (rp *redisPipeline) Incr(key string) {
	rp.p.Incr(context.Background(), key)
}

func (rp *redisPipeline) RPush(key string, value interface{}) {
	rp.p.RPush(context.Background(), key, value)
}

func (rp *redisPipeline) ZAdd(key string, score float64, member string) {
	rp.p.ZAdd(context.Background(), key, redis.Z{Score: score, Member: member})
}

func (rp *redisPipeline) ZRemRangeByScore(key string, min, max string) {
	rp.p.ZRemRangeByScore(context.Background(), key, min, max)
}

func (rp *redisPipeline) Exec(ctx context.Context) error {
	_, err := rp.p.Exec(ctx)
	if err == redis.Nil {
		return nil
	}
	return err
}
