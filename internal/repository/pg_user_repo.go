package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octopus/bulletin-digest/internal/domain"
)

type pgUserRepository struct {
	pool *pgxpool.Pool
}

// NewPgUserRepository returns a UserRepository backed by the users table.
func NewPgUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgUserRepository{pool: pool}
}

func (r *pgUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var (
		u     domain.User
		email *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, COALESCE(settings, '{}'::jsonb), last_bulletin_sent_at
		FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &email, &u.Settings, &u.LastBulletinSentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if email != nil {
		u.Email = *email
	}
	return &u, nil
}

func (r *pgUserRepository) UpdateLastBulletinSentAt(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET last_bulletin_sent_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("update last bulletin time: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
