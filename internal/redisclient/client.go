package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/next_sequence.lua
var nextSequenceScript string

//go:embed scripts/claim_idempotency.lua
var claimIdempotencyScript string

// PendingMarker is stored under an idempotency key while the request that
// claimed it is still running
const PendingMarker = "pending"

// ErrCacheMiss is returned when a key is absent
var ErrCacheMiss = errors.New("cache miss")

type Client struct {
	rdb            *redis.Client
	sequenceScript *redis.Script
	claimScript    *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewFromRedis(rdb), nil
}

// NewFromRedis wraps an existing go-redis client
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{
		rdb:            rdb,
		sequenceScript: redis.NewScript(nextSequenceScript),
		claimScript:    redis.NewScript(claimIdempotencyScript),
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// GetBytes returns the raw value stored at key
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

// SetBytes stores value at key with a TTL
func (c *Client) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Delete removes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// NextSequence atomically increments the counter at key. The counter
// expires ttl after its first increment.
func (c *Client) NextSequence(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	result, err := c.sequenceScript.Run(ctx, c.rdb, []string{key}, int64(ttl.Seconds())).Result()
	if err != nil {
		return 0, fmt.Errorf("sequence script failed: %w", err)
	}

	n, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected script result type %T", result)
	}
	return n, nil
}

// ClaimIdempotencyKey reserves key for the caller. When the key is already
// claimed the stored value is returned with claimed=false.
func (c *Client) ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (claimed bool, existing string, err error) {
	result, err := c.claimScript.Run(ctx, c.rdb,
		[]string{idempotencyKey(key)}, PendingMarker, int64(ttl.Seconds())).Result()
	if errors.Is(err, redis.Nil) {
		return true, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("idempotency script failed: %w", err)
	}

	value, ok := result.(string)
	if !ok {
		return false, "", fmt.Errorf("unexpected script result type %T", result)
	}
	return false, value, nil
}

// CompleteIdempotencyKey stores the final value for a claimed key
func (c *Client) CompleteIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, idempotencyKey(key), value, ttl).Err()
}

// ReleaseIdempotencyKey drops a claim so the request can be retried
func (c *Client) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, idempotencyKey(key)).Err()
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:sale:%s", key)
}
