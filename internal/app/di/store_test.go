package di

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account_backend/internal/app/config"
	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/platform/cache"
)

func testConfig(backend string, rc config.RedisConfig) *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Backend: backend, CacheTTL: time.Minute},
		Database: config.DatabaseConfig{
			Driver:        "sqlite",
			SQLitePath:    ":memory:",
			RunMigrations: true,
		},
		Redis: rc,
	}
}

func redisOf(mr *miniredis.Miniredis) config.RedisConfig {
	return config.RedisConfig{Host: mr.Host(), Port: mr.Port()}
}

// unreachableRedis は停止済みのminiredisのアドレスを返します。
func unreachableRedis(t *testing.T) config.RedisConfig {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redisOf(mr)
	mr.Close()
	return rc
}

// roundTrip はストアへの書き込みと読み出しができることを確認します。
func roundTrip(t *testing.T, s *Store) {
	t.Helper()

	ctx := context.Background()
	u := &entity.User{ID: "9b2f8c52-3f1e-4f0e-9a54-2d6f3c1b7a10", Name: "Jane Doe", Email: "jane.doe@m.com", PasswordHash: "h", Salt: "s"}
	require.NoError(t, s.Users.Insert(ctx, u))

	got, err := s.Users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
}

func TestNewStore_Memory(t *testing.T) {
	s, err := NewStore(context.Background(), testConfig(config.BackendMemory, config.RedisConfig{}))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	assert.Nil(t, s.Pinger)
	roundTrip(t, s)
}

func TestNewStore_SQLWithCache(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewStore(context.Background(), testConfig(config.BackendSQL, redisOf(mr)))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, cached := s.Users.(*cache.CachingUserStore)
	assert.True(t, cached, "sql store should be fronted by the cache when redis is reachable")
	require.NotNil(t, s.Pinger)
	assert.NoError(t, s.Pinger.Ping(context.Background()))

	roundTrip(t, s)
	assert.True(t, mr.Exists("usercache:9b2f8c52-3f1e-4f0e-9a54-2d6f3c1b7a10"))
}

func TestNewStore_SQLWithoutRedis(t *testing.T) {
	s, err := NewStore(context.Background(), testConfig(config.BackendSQL, unreachableRedis(t)))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, cached := s.Users.(*cache.CachingUserStore)
	assert.False(t, cached)
	roundTrip(t, s)
}

func TestNewStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewStore(context.Background(), testConfig(config.BackendRedis, redisOf(mr)))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NotNil(t, s.Pinger)
	roundTrip(t, s)
	assert.True(t, mr.Exists("users:email:jane.doe@m.com"))
}

func TestNewStore_RedisUnreachable(t *testing.T) {
	_, err := NewStore(context.Background(), testConfig(config.BackendRedis, unreachableRedis(t)))
	assert.Error(t, err)
}

func TestNewStore_UnknownBackend(t *testing.T) {
	_, err := NewStore(context.Background(), testConfig("mongo", config.RedisConfig{}))
	assert.ErrorContains(t, err, `unknown store backend "mongo"`)
}
