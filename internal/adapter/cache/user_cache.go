package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "room-user-service/internal/domain/user"
)

// UserCache defines the interface for user caching operations.
//
// Every entry has an invalidation counter next to it. A reader takes the
// counter with Version before loading from the database and stores the
// result with SetIfVersion, which refuses the write when Invalidate ran in
// between. A slow read can therefore never put an outdated record back.
type UserCache interface {
	// Get retrieves a user from cache by ID.
	// Returns nil if user is not found in cache.
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// Version returns the current invalidation counter for id.
	Version(ctx context.Context, id uuid.UUID) (string, error)

	// SetIfVersion stores a user with the configured TTL unless its counter
	// moved away from version. It reports whether the entry was stored.
	SetIfVersion(ctx context.Context, user *domain.User, version string) (bool, error)

	// Invalidate removes the entry and bumps its counter.
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// setIfVersion writes KEYS[1] only while KEYS[2] still holds ARGV[1].
var setIfVersion = redis.NewScript(`
local current = redis.call("GET", KEYS[2])
if not current then
	current = ""
end
if current ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// invalidate drops the entry and bumps its counter atomically.
var invalidate = redis.NewScript(`
redis.call("DEL", KEYS[1])
local v = redis.call("INCR", KEYS[2])
redis.call("PEXPIRE", KEYS[2], ARGV[1])
return v
`)

// RedisUserCache implements UserCache using Redis as the backing store.
type RedisUserCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisUserCache creates a new Redis-backed user cache.
func NewRedisUserCache(client *redis.Client, ttl time.Duration, log *zap.Logger) UserCache {
	return &RedisUserCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// cacheKey generates a Redis key for a user ID.
func (c *RedisUserCache) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id)
}

func (c *RedisUserCache) versionKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s:version", id)
}

// Get retrieves a user from Redis cache.
func (c *RedisUserCache) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	data, err := c.client.Get(ctx, c.cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("cache miss", zap.String("user_id", id.String()))
		return nil, nil
	}
	if err != nil {
		c.log.Error("failed to get from cache", zap.String("user_id", id.String()), zap.Error(err))
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		c.log.Error("failed to unmarshal cached user", zap.String("user_id", id.String()), zap.Error(err))
		return nil, err
	}

	c.log.Debug("cache hit", zap.String("user_id", id.String()))
	return &user, nil
}

// Version returns the invalidation counter, or "" when id was never invalidated.
func (c *RedisUserCache) Version(ctx context.Context, id uuid.UUID) (string, error) {
	v, err := c.client.Get(ctx, c.versionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		c.log.Error("failed to read cache version", zap.String("user_id", id.String()), zap.Error(err))
		return "", err
	}
	return v, nil
}

// SetIfVersion stores a user in Redis cache with TTL.
func (c *RedisUserCache) SetIfVersion(ctx context.Context, user *domain.User, version string) (bool, error) {
	if user == nil {
		return false, fmt.Errorf("cannot cache nil user")
	}

	data, err := json.Marshal(user)
	if err != nil {
		c.log.Error("failed to marshal user for cache", zap.String("user_id", user.ID.String()), zap.Error(err))
		return false, err
	}

	stored, err := setIfVersion.Run(ctx, c.client,
		[]string{c.cacheKey(user.ID), c.versionKey(user.ID)},
		version, data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.log.Error("failed to set cache", zap.String("user_id", user.ID.String()), zap.Error(err))
		return false, err
	}
	if stored == 0 {
		c.log.Debug("cache fill skipped, user changed during read", zap.String("user_id", user.ID.String()))
		return false, nil
	}

	c.log.Debug("cached user", zap.String("user_id", user.ID.String()), zap.Duration("ttl", c.ttl))
	return true, nil
}

// Invalidate removes a user from Redis cache.
func (c *RedisUserCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	// the counter has to outlive any read that started before this call
	keep := max(c.ttl, time.Hour)
	if err := invalidate.Run(ctx, c.client,
		[]string{c.cacheKey(id), c.versionKey(id)},
		keep.Milliseconds(),
	).Err(); err != nil {
		c.log.Error("failed to invalidate cache", zap.String("user_id", id.String()), zap.Error(err))
		return err
	}

	c.log.Debug("invalidated cache", zap.String("user_id", id.String()))
	return nil
}
