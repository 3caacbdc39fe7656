package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

// RoleCacheTTL bounds how long a resolved role is trusted
const RoleCacheTTL = 5 * time.Minute

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newClient(rdb), nil
}

func newClient(rdb *redis.Client) *Client {
	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}
}

// Ping checks the connection is alive
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func lockKey(key string) string        { return "lock:" + key }
func idempotencyKey(key string) string { return "idempotency:" + key }
func roleKey(userID string) string     { return "role:" + userID }

// AcquireLock takes a distributed lock. The returned token must be passed to
// ReleaseLock; ok is false when someone else holds the lock.
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// ReleaseLock releases a lock only if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, key, token string) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{lockKey(key)}, token).Result()
	if err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}

// ClaimIdempotencyKey records key and reports whether this caller was first
func (c *Client) ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, idempotencyKey(key), time.Now().Unix(), ttl).Result()
}

// GetCachedRole returns the cached role of a user. ok is false on a miss.
func (c *Client) GetCachedRole(ctx context.Context, userID string) (string, bool, error) {
	role, err := c.rdb.Get(ctx, roleKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return role, true, nil
}

// CacheRole stores the role of a user for RoleCacheTTL
func (c *Client) CacheRole(ctx context.Context, userID, role string) error {
	return c.rdb.Set(ctx, roleKey(userID), role, RoleCacheTTL).Err()
}

// InvalidateRole drops the cached role of a user
func (c *Client) InvalidateRole(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, roleKey(userID)).Err()
}
