// Package cache provides caching implementations for store interfaces.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/usecase"
)

// versionTTL bounds how long a per-id version counter outlives its last write.
const versionTTL = 24 * time.Hour

// errStaleFill は読み込み中に無効化が走ったことを示します。
var errStaleFill = errors.New("cache fill superseded by invalidation")

// CachingUserStore decorates a UserStore with a Redis read-through cache for
// lookups by id. Writes go to the inner store first, then the cached entry is dropped.
type CachingUserStore struct {
	inner     usecase.UserStore
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// Compile-time check to ensure CachingUserStore implements UserStore.
var _ usecase.UserStore = (*CachingUserStore)(nil)

// NewCachingUserStore decorates a UserStore with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "usercache".
func NewCachingUserStore(rdb *redis.Client, ttl time.Duration, inner usecase.UserStore, namespace string) *CachingUserStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "usercache"
	}
	return &CachingUserStore{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// FindByID checks the cache first, then falls back to the inner store.
func (c *CachingUserStore) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if c.rdb == nil {
		return c.inner.FindByID(ctx, id)
	}

	key := c.cacheKey(id)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var u entity.User
		if err := json.Unmarshal(b, &u); err == nil {
			return &u, nil
		}
		// 壊れたエントリは削除
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to inner store
	// 読む前のバージョンを控えておき、無効化を挟んだ古い値は書き戻さない
	ver, verErr := c.rdb.Get(ctx, c.versionKey(id)).Int64()
	if verErr != nil && !errors.Is(verErr, redis.Nil) {
		return c.inner.FindByID(ctx, id)
	}

	u, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if err := c.fill(ctx, id, ver, u); err != nil && !errors.Is(err, errStaleFill) && !errors.Is(err, redis.TxFailedErr) {
		slog.Debug("failed to fill user cache", "id", id, "error", err)
	}

	return u, nil
}

// fill writes u only if no invalidation has bumped the version since ver was read.
func (c *CachingUserStore) fill(ctx context.Context, id string, ver int64, u *entity.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	verKey := c.versionKey(id)
	return c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, verKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != ver {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.cacheKey(id), b, c.ttl)
			return nil
		})
		return err
	}, verKey)
}

// FindByEmail is not cached.
func (c *CachingUserStore) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return c.inner.FindByEmail(ctx, email)
}

func (c *CachingUserStore) Insert(ctx context.Context, u *entity.User) error {
	return c.inner.Insert(ctx, u)
}

// Replace updates the inner store and invalidates the cached record.
func (c *CachingUserStore) Replace(ctx context.Context, u *entity.User) error {
	if err := c.inner.Replace(ctx, u); err != nil {
		return err
	}
	c.invalidate(ctx, u.ID)
	return nil
}

// Delete removes from the inner store and invalidates the cached record.
func (c *CachingUserStore) Delete(ctx context.Context, id string) (*entity.User, error) {
	u, err := c.inner.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, id)
	return u, nil
}

func (c *CachingUserStore) Count(ctx context.Context) (int64, error) {
	return c.inner.Count(ctx)
}

func (c *CachingUserStore) invalidate(ctx context.Context, id string) {
	if c.rdb == nil {
		return
	}
	verKey := c.versionKey(id)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, verKey)
		pipe.Expire(ctx, verKey, versionTTL)
		pipe.Del(ctx, c.cacheKey(id))
		return nil
	})
	if err != nil {
		slog.Warn("failed to invalidate user cache", "id", id, "error", err)
	}
}

// cacheKey generates the cache key for a user id.
func (c *CachingUserStore) cacheKey(id string) string {
	return fmt.Sprintf("%s:%s", c.namespace, safe(id))
}

// versionKey holds the invalidation counter for a user id.
// safe() removes ':' from ids, so it never collides with a cacheKey.
func (c *CachingUserStore) versionKey(id string) string {
	return fmt.Sprintf("%s:ver:%s", c.namespace, safe(id))
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
