package mailer

import (
	"context"
	"fmt"

	"github.com/octopus/bulletin-digest/internal/ratelimiter"
)

// RateLimited gates another Mailer behind a shared token bucket so a batch of
// concurrent users cannot exceed the relay's send rate.
type RateLimited struct {
	next    Mailer
	limiter *ratelimiter.Limiter
}

func NewRateLimited(next Mailer, limiter *ratelimiter.Limiter) *RateLimited {
	return &RateLimited{next: next, limiter: limiter}
}

func (m *RateLimited) SendDigest(ctx context.Context, msg Message) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}
	return m.next.SendDigest(ctx, msg)
}

var _ Mailer = (*RateLimited)(nil)
