package store

import (
	"context"
	"sync"

	"eam/internal/accounts/models"
	"eam/pkg/platform/sentinel"
)

// InMemory keys users by normalized username.
type InMemory struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[string]models.User)}
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.NormalizeUsername(user.Username)
	if _, ok := s.users[key]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.users[key] = *user
	return nil
}

func (s *InMemory) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[models.NormalizeUsername(username)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &user, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}
