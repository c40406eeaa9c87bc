package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/usecase"
)

// userRedis is a key-value UserStore.
//
// Layout:
//
//	<prefix>:id:<id>        JSON record
//	<prefix>:email:<email>  owning id (claimed with SETNX)
//	<prefix>:ids            set of all ids
//
// Mutations of an existing record run under WATCH on its key.
type userRedis struct {
	client *redis.Client
	prefix string
}

// Compile-time check to ensure userRedis implements UserStore.
var _ usecase.UserStore = (*userRedis)(nil)

// NewUserRedis creates a new userRedis. An empty prefix defaults to "users".
func NewUserRedis(client *redis.Client, prefix string) *userRedis {
	if prefix == "" {
		prefix = "users"
	}
	return &userRedis{client: client, prefix: prefix}
}

// stringCmds is satisfied by both *redis.Client and a watched *redis.Tx.
type stringCmds interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

func (r *userRedis) userKey(id string) string {
	return fmt.Sprintf("%s:id:%s", r.prefix, id)
}

func (r *userRedis) emailKey(email string) string {
	return fmt.Sprintf("%s:email:%s", r.prefix, email)
}

func (r *userRedis) idsKey() string {
	return r.prefix + ":ids"
}

// Ping checks that Redis is reachable.
func (r *userRedis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *userRedis) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.load(ctx, r.client, id)
}

func (r *userRedis) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	id, err := r.client.Get(ctx, r.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}
	u, err := r.load(ctx, r.client, id)
	if err != nil {
		return nil, err
	}
	// The index may briefly point at a record whose email has since changed.
	if u.Email != email {
		return nil, usecase.ErrUserNotFound
	}
	return u, nil
}

// load reads and decodes a record through c, which is either the client or a watched transaction.
func (r *userRedis) load(ctx context.Context, c stringCmds, id string) (*entity.User, error) {
	data, err := c.Get(ctx, r.userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}
	var u entity.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &u, nil
}

// claimEmail reserves email for id. It succeeds if the email is free or already owned by id.
func (r *userRedis) claimEmail(ctx context.Context, c stringCmds, email, id string) error {
	ok, err := c.SetNX(ctx, r.emailKey(email), id, 0).Result()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	owner, err := c.Get(ctx, r.emailKey(email)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if owner != id {
		return usecase.ErrEmailAlreadyExists
	}
	return nil
}

// releaseEmail drops the email index entry if it still belongs to id.
func (r *userRedis) releaseEmail(ctx context.Context, email, id string) {
	owner, err := r.client.Get(ctx, r.emailKey(email)).Result()
	if err != nil || owner != id {
		return
	}
	if err := r.client.Del(ctx, r.emailKey(email)).Err(); err != nil {
		slog.Warn("failed to release email index", "error", err)
	}
}

func (r *userRedis) Insert(ctx context.Context, u *entity.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	if err := r.claimEmail(ctx, r.client, u.Email, u.ID); err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.userKey(u.ID), data, 0)
		pipe.SAdd(ctx, r.idsKey(), u.ID)
		return nil
	})
	if err != nil {
		r.releaseEmail(ctx, u.Email, u.ID)
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *userRedis) Replace(ctx context.Context, u *entity.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	claimed := false
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.load(ctx, tx, u.ID)
		if err != nil {
			return err
		}

		if current.Email != u.Email {
			if err := r.claimEmail(ctx, tx, u.Email, u.ID); err != nil {
				return err
			}
			claimed = true
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.userKey(u.ID), data, 0)
			if current.Email != u.Email {
				pipe.Del(ctx, r.emailKey(current.Email))
			}
			return nil
		})
		return err
	}, r.userKey(u.ID))
	if err != nil {
		if claimed {
			r.releaseEmail(ctx, u.Email, u.ID)
		}
		if errors.Is(err, usecase.ErrUserNotFound) || errors.Is(err, usecase.ErrEmailAlreadyExists) {
			return err
		}
		return fmt.Errorf("failed to replace user: %w", err)
	}
	return nil
}

func (r *userRedis) Delete(ctx context.Context, id string) (*entity.User, error) {
	var removed *entity.User
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		u, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, r.userKey(id))
			pipe.Del(ctx, r.emailKey(u.Email))
			pipe.SRem(ctx, r.idsKey(), id)
			return nil
		})
		if err != nil {
			return err
		}
		removed = u
		return nil
	}, r.userKey(id))
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	return removed, nil
}

func (r *userRedis) Count(ctx context.Context) (int64, error) {
	return r.client.SCard(ctx, r.idsKey()).Result()
}
