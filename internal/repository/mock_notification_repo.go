package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/octopus/bulletin-digest/internal/domain"
)

// MockNotificationRepository is a hand-written, in-memory implementation of
// NotificationRepository used in unit tests. It is safe for concurrent use.
type MockNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]domain.Notification

	// Optional error overrides, set in tests to simulate failure paths.
	FindErr       error
	CreateErr     error
	DeleteManyErr error
	DeleteErrFor  map[string]error
	UpdateErrFor  map[string]error

	DeleteManyCalls [][]string
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[string]domain.Notification),
		DeleteErrFor:  make(map[string]error),
		UpdateErrFor:  make(map[string]error),
	}
}

// Seed stores notifications as-is. Missing type and status default to a
// pending bulletin.
func (m *MockNotificationRepository) Seed(ns ...domain.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range ns {
		if n.Type == "" {
			n.Type = domain.NotificationTypeBulletin
		}
		if n.Status == "" {
			n.Status = domain.StatusPending
		}
		m.notifications[n.ID] = n
	}
}

// Get returns a stored notification by id.
func (m *MockNotificationRepository) Get(id string) (domain.Notification, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	return n, ok
}

// Len returns the number of stored notifications.
func (m *MockNotificationRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notifications)
}

func (m *MockNotificationRepository) FindPendingBulletins(_ context.Context) ([]domain.Notification, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Notification
	for _, n := range m.notifications {
		if n.Type == domain.NotificationTypeBulletin && n.Status == domain.StatusPending {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return result, nil
}

func (m *MockNotificationRepository) CreateMany(_ context.Context, notifications []domain.NewBulletinNotification) (int, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, n := range notifications {
		id := uuid.New().String()
		m.notifications[id] = domain.Notification{
			ID:         id,
			UserID:     n.UserID,
			EntityID:   n.EntityID,
			Type:       domain.NotificationTypeBulletin,
			ActionType: n.ActionType,
			Payload:    n.Payload,
			Status:     domain.StatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	return len(notifications), nil
}

func (m *MockNotificationRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.DeleteErrFor[id]; err != nil {
		return err
	}
	if _, ok := m.notifications[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.notifications, id)
	return nil
}

func (m *MockNotificationRepository) DeleteMany(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteManyCalls = append(m.DeleteManyCalls, append([]string(nil), ids...))
	if m.DeleteManyErr != nil {
		return 0, m.DeleteManyErr
	}
	deleted := 0
	for _, id := range ids {
		if _, ok := m.notifications[id]; ok {
			delete(m.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockNotificationRepository) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.UpdateErrFor[id]; err != nil {
		return err
	}
	n, ok := m.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.Status = status
	n.UpdatedAt = time.Now().UTC()
	m.notifications[id] = n
	return nil
}

func (m *MockNotificationRepository) ResetFailed(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, n := range m.notifications {
		if n.Type == domain.NotificationTypeBulletin && n.Status == domain.StatusFailed {
			n.Status = domain.StatusPending
			m.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (m *MockNotificationRepository) DeleteFailed(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, n := range m.notifications {
		if n.Type == domain.NotificationTypeBulletin && n.Status == domain.StatusFailed {
			delete(m.notifications, id)
			count++
		}
	}
	return count, nil
}

func (m *MockNotificationRepository) CountBulletinsByStatus(_ context.Context) (map[domain.Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[domain.Status]int{
		domain.StatusPending: 0,
		domain.StatusFailed:  0,
	}
	for _, n := range m.notifications {
		if n.Type == domain.NotificationTypeBulletin {
			counts[n.Status]++
		}
	}
	return counts, nil
}

var _ NotificationRepository = (*MockNotificationRepository)(nil)
