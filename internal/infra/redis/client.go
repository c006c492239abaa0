package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for run locking.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks connectivity.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func runLockKey(runID string) string {
	return fmt.Sprintf("sift_run_lock:%s", runID)
}

// AcquireRunLock takes the processing lock for a run. A parent and its healed
// child are never simultaneously active against one run; the parent releases
// before the handoff and the child re-acquires.
func (c *Client) AcquireRunLock(
	ctx context.Context,
	runID string,
	holder string,
	ttl time.Duration,
) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, runLockKey(runID), holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// RefreshRunLock extends the TTL of a held lock.
func (c *Client) RefreshRunLock(ctx context.Context, runID string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, runLockKey(runID), ttl).Err()
}

// ReleaseRunLock releases the processing lock.
func (c *Client) ReleaseRunLock(ctx context.Context, runID string) error {
	return c.rdb.Del(ctx, runLockKey(runID)).Err()
}
