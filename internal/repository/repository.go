package repository

import (
	"context"
	"time"

	"github.com/octopus/bulletin-digest/internal/domain"
)

// NotificationRepository is the durable notification store the digest engine
// reads and reconciles. The pgx implementation is in pg_notification_repo.go.
// Tests use a hand-written mock (mock_notification_repo.go).
type NotificationRepository interface {
	// FindPendingBulletins returns every PENDING bulletin ordered by user and
	// then creation time, so each user's notifications are contiguous.
	FindPendingBulletins(ctx context.Context) ([]domain.Notification, error)
	CreateMany(ctx context.Context, notifications []domain.NewBulletinNotification) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	ResetFailed(ctx context.Context) (int, error)
	DeleteFailed(ctx context.Context) (int, error)
	CountBulletinsByStatus(ctx context.Context) (map[domain.Status]int, error)
}

// UserRepository is the user directory. Users are owned elsewhere; the digest
// engine only reads profiles and stamps the last bulletin time.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateLastBulletinSentAt(ctx context.Context, id string, at time.Time) error
}
