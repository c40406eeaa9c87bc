// Package adapters provides UserStore implementations for the account feature.
package adapters

import (
	"context"
	"sync"

	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/usecase"
)

// userMemory is an in-process UserStore. A single mutex guards the
// collection so that every lookup-and-mutate runs as one step.
type userMemory struct {
	mu    sync.Mutex
	users []entity.User
}

// Compile-time check to ensure userMemory implements UserStore.
var _ usecase.UserStore = (*userMemory)(nil)

// NewUserMemory creates an empty in-memory store.
func NewUserMemory() *userMemory {
	return &userMemory{}
}

// indexOf returns the position of the record matching pred, or -1. Callers hold mu.
func (s *userMemory) indexOf(pred func(*entity.User) bool) int {
	for i := range s.users {
		if pred(&s.users[i]) {
			return i
		}
	}
	return -1
}

func (s *userMemory) FindByID(_ context.Context, id string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(func(u *entity.User) bool { return u.ID == id })
	if i < 0 {
		return nil, usecase.ErrUserNotFound
	}
	u := s.users[i]
	return &u, nil
}

func (s *userMemory) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(func(u *entity.User) bool { return u.Email == email })
	if i < 0 {
		return nil, usecase.ErrUserNotFound
	}
	u := s.users[i]
	return &u, nil
}

func (s *userMemory) Insert(_ context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(func(u *entity.User) bool { return u.Email == user.Email }) >= 0 {
		return usecase.ErrEmailAlreadyExists
	}
	s.users = append(s.users, *user)
	return nil
}

func (s *userMemory) Replace(_ context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(func(u *entity.User) bool { return u.ID == user.ID })
	if i < 0 {
		return usecase.ErrUserNotFound
	}
	if s.indexOf(func(u *entity.User) bool { return u.Email == user.Email && u.ID != user.ID }) >= 0 {
		return usecase.ErrEmailAlreadyExists
	}
	s.users[i] = *user
	return nil
}

func (s *userMemory) Delete(_ context.Context, id string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(func(u *entity.User) bool { return u.ID == id })
	if i < 0 {
		return nil, usecase.ErrUserNotFound
	}
	removed := s.users[i]
	s.users = append(s.users[:i], s.users[i+1:]...)
	return &removed, nil
}

func (s *userMemory) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), nil
}
