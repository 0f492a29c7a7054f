package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octopus/bulletin-digest/internal/domain"
)

type pgNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewPgNotificationRepository returns a NotificationRepository backed by PostgreSQL.
func NewPgNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &pgNotificationRepository{pool: pool}
}

func (r *pgNotificationRepository) FindPendingBulletins(ctx context.Context) ([]domain.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, entity_id, type, action_type, payload, status, created_at, updated_at
		FROM notifications
		WHERE type = $1 AND status = $2
		ORDER BY user_id ASC, created_at ASC, id ASC`,
		domain.NotificationTypeBulletin, domain.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("find pending bulletins: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// CreateMany inserts the notifications in one transaction, each under a fresh
// id. Repeated events are kept as separate rows; the digest collapses them to
// the newest per action type and entity.
func (r *pgNotificationRepository) CreateMany(ctx context.Context, notifications []domain.NewBulletinNotification) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	inserted := 0
	for _, n := range notifications {
		tag, err := tx.Exec(ctx, `
			INSERT INTO notifications
				(id, user_id, entity_id, type, action_type, payload, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)`,
			uuid.New().String(), n.UserID, n.EntityID, domain.NotificationTypeBulletin,
			n.ActionType, n.Payload, domain.StatusPending, now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert notification: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit notifications: %w", err)
	}
	return inserted, nil
}

func (r *pgNotificationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgNotificationRepository) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgNotificationRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgNotificationRepository) ResetFailed(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET status = $1, updated_at = NOW()
		WHERE type = $2 AND status = $3`,
		domain.StatusPending, domain.NotificationTypeBulletin, domain.StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("reset failed bulletins: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgNotificationRepository) DeleteFailed(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE type = $1 AND status = $2`,
		domain.NotificationTypeBulletin, domain.StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("delete failed bulletins: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgNotificationRepository) CountBulletinsByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM notifications
		WHERE type = $1
		GROUP BY status`, domain.NotificationTypeBulletin)
	if err != nil {
		return nil, fmt.Errorf("count bulletins: %w", err)
	}
	defer rows.Close()

	counts := map[domain.Status]int{
		domain.StatusPending: 0,
		domain.StatusFailed:  0,
	}
	for rows.Next() {
		var (
			status domain.Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ---- helpers ----

// scanNotification reads a single notification row from any pgx row type.
// payload is JSONB and decodes straight into domain.Payload.
func scanNotification(row pgx.Row) (domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID, &n.UserID, &n.EntityID, &n.Type, &n.ActionType,
		&n.Payload, &n.Status, &n.CreatedAt, &n.UpdatedAt,
	)
	return n, err
}

func scanNotifications(rows pgx.Rows) ([]domain.Notification, error) {
	var result []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
