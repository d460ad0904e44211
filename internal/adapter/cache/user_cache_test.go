package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "room-user-service/internal/domain/user"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

func testUser() *domain.User {
	return &domain.User{
		ID:             uuid.New(),
		Email:          "john@example.com",
		HashedPassword: "hash",
		FullName:       "John Doe",
		IsActive:       true,
	}
}

func TestRedisUserCache_SetIfVersion_Success(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUserCache(client, 5*time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	user := testUser()
	version, err := cache.Version(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, version)

	stored, err := cache.SetIfVersion(ctx, user, version)
	require.NoError(t, err)
	assert.True(t, stored)

	data, err := client.Get(ctx, "user:"+user.ID.String()).Bytes()
	require.NoError(t, err)

	var cached domain.User
	require.NoError(t, json.Unmarshal(data, &cached))
	assert.Equal(t, *user, cached)
}

func TestRedisUserCache_SetIfVersion_NilUser(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUserCache(client, 5*time.Minute, zaptest.NewLogger(t))

	stored, err := cache.SetIfVersion(context.Background(), nil, "")
	assert.Error(t, err)
	assert.False(t, stored)
	assert.Contains(t, err.Error(), "cannot cache nil user")
}

func TestRedisUserCache_SetIfVersion_SkippedAfterInvalidate(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserCache(client, 5*time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	user := testUser()
	version, err := cache.Version(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx, user.ID))

	stored, err := cache.SetIfVersion(ctx, user, version)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists("user:"+user.ID.String()))

	// a reader that starts after the invalidation may fill again
	version, err = cache.Version(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", version)

	stored, err = cache.SetIfVersion(ctx, user, version)
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestRedisUserCache_Get_Success(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUserCache(client, 5*time.Minute, zaptest.NewLogger(t))

	user := testUser()
	_, err := cache.SetIfVersion(context.Background(), user, "")
	require.NoError(t, err)

	cached, err := cache.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, user, cached)
}

func TestRedisUserCache_Get_CacheMiss(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUserCache(client, 5*time.Minute, zaptest.NewLogger(t))

	cached, err := cache.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestRedisUserCache_Get_CorruptedPayload(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserCache(client, 5*time.Minute, zaptest.NewLogger(t))

	id := uuid.New()
	require.NoError(t, mr.Set("user:"+id.String(), "{not json"))

	_, err := cache.Get(context.Background(), id)
	assert.Error(t, err)
}

func TestRedisUserCache_TTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserCache(client, time.Minute, zaptest.NewLogger(t))

	user := testUser()
	_, err := cache.SetIfVersion(context.Background(), user, "")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("user:"+user.ID.String()))

	mr.FastForward(2 * time.Minute)

	cached, err := cache.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestRedisUserCache_Invalidate(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserCache(client, 5*time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	user := testUser()
	_, err := cache.SetIfVersion(ctx, user, "")
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx, user.ID))
	require.NoError(t, cache.Invalidate(ctx, user.ID))

	assert.False(t, mr.Exists("user:"+user.ID.String()))
	version, err := cache.Version(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "2", version)
	assert.Equal(t, time.Hour, mr.TTL("user:"+user.ID.String()+":version"))
}

func TestRedisUserCache_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserCache(client, 5*time.Minute, zaptest.NewLogger(t))
	mr.Close()
	ctx := context.Background()

	_, err := cache.Get(ctx, uuid.New())
	assert.Error(t, err)
	_, err = cache.Version(ctx, uuid.New())
	assert.Error(t, err)
	_, err = cache.SetIfVersion(ctx, testUser(), "")
	assert.Error(t, err)
	assert.Error(t, cache.Invalidate(ctx, uuid.New()))
}
