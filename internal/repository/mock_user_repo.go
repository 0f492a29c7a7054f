package repository

import (
	"context"
	"sync"
	"time"

	"github.com/octopus/bulletin-digest/internal/domain"
)

// MockUserRepository is an in-memory UserRepository for tests.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User

	// Optional error overrides keyed by user id.
	GetErrFor    map[string]error
	UpdateErrFor map[string]error
}

func NewMockUserRepository(users ...domain.User) *MockUserRepository {
	m := &MockUserRepository{
		users:        make(map[string]domain.User),
		GetErrFor:    make(map[string]error),
		UpdateErrFor: make(map[string]error),
	}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

// Put stores or replaces a user.
func (m *MockUserRepository) Put(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MockUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.GetErrFor[id]; err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *MockUserRepository) UpdateLastBulletinSentAt(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.UpdateErrFor[id]; err != nil {
		return err
	}
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.LastBulletinSentAt = &at
	m.users[id] = u
	return nil
}

var _ UserRepository = (*MockUserRepository)(nil)
