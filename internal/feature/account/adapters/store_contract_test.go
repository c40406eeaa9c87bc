package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/usecase"
)

// newTestUser creates a user entity for testing.
func newTestUser(name, email string) *entity.User {
	now := time.Now().UTC().Truncate(time.Second)
	return &entity.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2hoYXNoaGFzaA",
		Salt:         "abcdefghijklmnopqrst",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// assertSameUser compares two records field by field, tolerating time zone differences.
func assertSameUser(t *testing.T, want, got *entity.User) {
	t.Helper()

	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Email, got.Email)
	assert.Equal(t, want.PasswordHash, got.PasswordHash)
	assert.Equal(t, want.Salt, got.Salt)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "CreatedAt: want %v, got %v", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "UpdatedAt: want %v, got %v", want.UpdatedAt, got.UpdatedAt)
}

// testUserStoreContract runs the behavior every UserStore backend must share.
func testUserStoreContract(t *testing.T, newStore func(t *testing.T) usecase.UserStore) {
	ctx := context.Background()

	t.Run("insert then find by id and email", func(t *testing.T) {
		store := newStore(t)
		u := newTestUser("Jane Doe", "jane.doe@m.com")

		require.NoError(t, store.Insert(ctx, u))

		byID, err := store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assertSameUser(t, u, byID)

		byEmail, err := store.FindByEmail(ctx, u.Email)
		require.NoError(t, err)
		assertSameUser(t, u, byEmail)
	})

	t.Run("missing records", func(t *testing.T) {
		store := newStore(t)

		_, err := store.FindByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)

		_, err = store.FindByEmail(ctx, "nobody@m.com")
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)

		_, err = store.Delete(ctx, uuid.NewString())
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)

		err = store.Replace(ctx, newTestUser("Ghost", "ghost@m.com"))
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)
	})

	t.Run("duplicate email on insert", func(t *testing.T) {
		store := newStore(t)
		first := newTestUser("Jane Doe", "dup@m.com")
		second := newTestUser("John Doe", "dup@m.com")

		require.NoError(t, store.Insert(ctx, first))
		err := store.Insert(ctx, second)
		assert.ErrorIs(t, err, usecase.ErrEmailAlreadyExists)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		found, err := store.FindByEmail(ctx, "dup@m.com")
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)

		_, err = store.FindByID(ctx, second.ID)
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)
	})

	t.Run("replace moves the email index", func(t *testing.T) {
		store := newStore(t)
		u := newTestUser("Jack Doe", "jack.doe@m.com")
		require.NoError(t, store.Insert(ctx, u))

		updated := *u
		updated.Name = "Jak Doe"
		updated.Email = "jkd@m.com"
		updated.UpdatedAt = u.UpdatedAt.Add(time.Minute)
		require.NoError(t, store.Replace(ctx, &updated))

		got, err := store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assertSameUser(t, &updated, got)

		_, err = store.FindByEmail(ctx, "jack.doe@m.com")
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)

		got, err = store.FindByEmail(ctx, "jkd@m.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		// The old email is free again.
		require.NoError(t, store.Insert(ctx, newTestUser("Other", "jack.doe@m.com")))
	})

	t.Run("replace keeping the same email", func(t *testing.T) {
		store := newStore(t)
		u := newTestUser("Jane Doe", "same@m.com")
		require.NoError(t, store.Insert(ctx, u))

		updated := *u
		updated.PasswordHash = "$argon2id$new"
		require.NoError(t, store.Replace(ctx, &updated))

		got, err := store.FindByEmail(ctx, "same@m.com")
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$new", got.PasswordHash)
	})

	t.Run("replace onto another record's email", func(t *testing.T) {
		store := newStore(t)
		a := newTestUser("A", "a@m.com")
		b := newTestUser("B", "b@m.com")
		require.NoError(t, store.Insert(ctx, a))
		require.NoError(t, store.Insert(ctx, b))

		clash := *a
		clash.Email = "b@m.com"
		clash.Name = "A2"
		err := store.Replace(ctx, &clash)
		assert.ErrorIs(t, err, usecase.ErrEmailAlreadyExists)

		gotA, err := store.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assertSameUser(t, a, gotA)

		gotB, err := store.FindByEmail(ctx, "b@m.com")
		require.NoError(t, err)
		assertSameUser(t, b, gotB)

		gotA, err = store.FindByEmail(ctx, "a@m.com")
		require.NoError(t, err)
		assert.Equal(t, a.ID, gotA.ID)
	})

	t.Run("delete returns the removed record", func(t *testing.T) {
		store := newStore(t)
		u := newTestUser("Jerome Doe", "j85@m.com")
		keep := newTestUser("Jessie Doe", "jessied@m.com")
		require.NoError(t, store.Insert(ctx, u))
		require.NoError(t, store.Insert(ctx, keep))

		removed, err := store.Delete(ctx, u.ID)
		require.NoError(t, err)
		assertSameUser(t, u, removed)

		_, err = store.FindByID(ctx, u.ID)
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)
		_, err = store.FindByEmail(ctx, u.Email)
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = store.Delete(ctx, u.ID)
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)

		// The email can be registered again.
		require.NoError(t, store.Insert(ctx, newTestUser("Jerome Doe", "j85@m.com")))
	})

	t.Run("count", func(t *testing.T) {
		store := newStore(t)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		for _, email := range []string{"1@m.com", "2@m.com", "3@m.com"} {
			require.NoError(t, store.Insert(ctx, newTestUser("x", email)))
		}

		n, err = store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("returned records are detached", func(t *testing.T) {
		store := newStore(t)
		u := newTestUser("Jane Doe", "detached@m.com")
		require.NoError(t, store.Insert(ctx, u))

		got, err := store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		got.Name = "mutated"
		u.Name = "mutated too"

		again, err := store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", again.Name)
	})
}
