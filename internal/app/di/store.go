// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"fmt"
	"log/slog"

	redisv9 "github.com/redis/go-redis/v9"

	"account_backend/internal/app/config"
	"account_backend/internal/feature/account/adapters"
	"account_backend/internal/feature/account/usecase"
	"account_backend/internal/platform/cache"
	"account_backend/internal/platform/db"
	platformhandler "account_backend/internal/platform/http/handler"
	infraredis "account_backend/internal/platform/redis"
)

// Store bundles the selected UserStore with its readiness probe and cleanup.
type Store struct {
	Users usecase.UserStore
	// Pinger is nil for the in-memory backend.
	Pinger platformhandler.Pinger

	closers []func() error
}

// Close releases connections opened for the store.
func (s *Store) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			slog.Error("failed to close store connection", "error", err)
		}
	}
}

// NewStore creates the UserStore selected by cfg.Store.Backend.
//
//   - memory: process-local, lost on restart
//   - sql:    GORM (postgres or sqlite), fronted by a Redis cache when Redis is reachable
//   - redis:  Redis as the primary store; Redis must be reachable
func NewStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		slog.Info("using in-memory user store")
		return &Store{Users: adapters.NewUserMemory()}, nil

	case config.BackendSQL:
		return newSQLStore(ctx, cfg)

	case config.BackendRedis:
		rdb, err := infraredis.NewRedisClient(redisConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		users := adapters.NewUserRedis(rdb, "users")
		return &Store{Users: users, Pinger: users, closers: []func() error{rdb.Close}}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func newSQLStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	gdb, err := db.Open(db.Config{
		Driver:     cfg.Database.Driver,
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		Name:       cfg.Database.Name,
		SSLMode:    cfg.Database.SSLMode,
		SQLitePath: cfg.Database.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("sql store: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("sql store: %w", err)
	}

	sqlStore := adapters.NewUserSQL(gdb)
	if cfg.Database.RunMigrations {
		if err := sqlStore.Migrate(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("sql store: migrate: %w", err)
		}
	}

	s := &Store{Users: sqlStore, Pinger: sqlStore, closers: []func() error{sqlDB.Close}}

	// Redisキャッシュでラップ（利用できなければキャッシュなしで動作）
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(redisConfig(cfg)); err != nil {
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
	} else {
		rdb = tmp
		s.closers = append(s.closers, rdb.Close)
		s.Users = cache.NewCachingUserStore(rdb, cfg.Store.CacheTTL, sqlStore, "usercache")
	}
	return s, nil
}

func redisConfig(cfg *config.Config) infraredis.Config {
	return infraredis.Config{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}
