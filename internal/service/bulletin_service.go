package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/octopus/bulletin-digest/internal/domain"
	"github.com/octopus/bulletin-digest/internal/mailer"
	"github.com/octopus/bulletin-digest/internal/repository"
)

// DefaultDigestDelta is the minimum time between two bulletins for one user.
// It is 6.9 days, a little under a week, so a weekly schedule still clears
// the window despite timing jitter.
const DefaultDigestDelta = 165*time.Hour + 36*time.Minute

// DefaultReconcileConcurrency bounds in-flight store writes during reconciliation.
const DefaultReconcileConcurrency = 25

// BulletinService drives the digest run end to end: load, dispatch, reconcile.
// It also exposes the maintenance operations on bulletin notifications.
type BulletinService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	mail          mailer.Mailer
	logger        *zap.Logger

	batchSize            int
	reconcileConcurrency int
	now                  func() time.Time
	onRun                func(Result)

	running sync.Mutex
}

// Option customises a BulletinService.
type Option func(*BulletinService)

// WithBatchSize sets how many users are processed concurrently.
func WithBatchSize(n int) Option {
	return func(s *BulletinService) { s.batchSize = n }
}

// WithReconcileConcurrency bounds parallel store writes during reconciliation.
func WithReconcileConcurrency(n int) Option {
	return func(s *BulletinService) { s.reconcileConcurrency = n }
}

// WithClock replaces the time source used for throttling and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *BulletinService) { s.now = now }
}

// WithRunHook registers a callback invoked after every SendAll.
func WithRunHook(fn func(Result)) Option {
	return func(s *BulletinService) { s.onRun = fn }
}

func NewBulletinService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	mail mailer.Mailer,
	logger *zap.Logger,
	opts ...Option,
) *BulletinService {
	s := &BulletinService{
		notifications:        notifications,
		users:                users,
		mail:                 mail,
		logger:               logger,
		batchSize:            DefaultBatchSize,
		reconcileConcurrency: DefaultReconcileConcurrency,
		now:                  func() time.Time { return time.Now().UTC() },
		onRun:                func(Result) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reconcileConcurrency <= 0 {
		s.reconcileConcurrency = DefaultReconcileConcurrency
	}
	return s
}

// SendAll delivers one digest to every user with pending bulletin
// notifications and reconciles the store:
//   - sent notifications are deleted,
//   - failed notifications are marked FAILED,
//   - skipped notifications are left PENDING.
//
// A non-positive digestDelta selects DefaultDigestDelta. force bypasses the
// per-user throttle window. Runs never overlap; a concurrent call returns
// immediately with ErrRunInProgress in Errors.
func (s *BulletinService) SendAll(ctx context.Context, force bool, digestDelta time.Duration) Result {
	if !s.running.TryLock() {
		res := Result{Errors: []error{domain.ErrRunInProgress}}
		s.onRun(res)
		return res
	}
	defer s.running.Unlock()

	if digestDelta <= 0 {
		digestDelta = DefaultDigestDelta
	}

	start := time.Now()
	log := s.logger.With(zap.String("run_id", uuid.New().String()), zap.Bool("force", force))

	res := s.sendAll(ctx, force, digestDelta, log)
	res.Duration = time.Since(start)

	log.Info("bulletin run finished",
		zap.Int("sent", res.TotalSent),
		zap.Int("failed", res.TotalFailed),
		zap.Int("skipped", res.TotalSkipped),
		zap.Int("discarded", res.TotalDiscarded),
		zap.Int("emails", res.EmailsSent),
		zap.Int("errors", len(res.Errors)),
		zap.Duration("duration", res.Duration),
	)
	s.onRun(res)
	return res
}

func (s *BulletinService) sendAll(ctx context.Context, force bool, digestDelta time.Duration, log *zap.Logger) Result {
	var res Result

	pending, err := s.notifications.FindPendingBulletins(ctx)
	if err != nil {
		log.Error("failed to load pending bulletins", zap.Error(err))
		res.Errors = append(res.Errors, &domain.DigestError{
			Kind: domain.ErrorKindPersistence,
			Err:  fmt.Errorf("load pending bulletins: %w", err),
		})
		return res
	}
	if len(pending) == 0 {
		return res
	}

	log.Info("bulletin run started", zap.Int("pending", len(pending)), zap.Duration("digest_delta", digestDelta))

	d := NewDispatcher(s.notifications, s.users, s.mail, s.batchSize, s.now, log)
	out := d.Dispatch(ctx, pending, digestDelta, force)

	res.Errors = append(res.Errors, out.Errors...)
	res.Errors = append(res.Errors, s.reconcile(ctx, out, log)...)

	res.TotalSent = len(out.Sent)
	res.TotalFailed = len(out.Failed)
	res.TotalSkipped = len(out.Skipped)
	res.TotalDiscarded = len(out.Discarded)
	res.EmailsSent = out.EmailsSent
	return res
}

// reconcile deletes sent notifications and flags failed ones. Every write is
// independent: one failing item never blocks another, and errors are
// collected per item.
func (s *BulletinService) reconcile(ctx context.Context, out Outcome, log *zap.Logger) []error {
	total := len(out.Sent) + len(out.Failed)
	if total == 0 {
		return nil
	}
	errs := make([]error, total)

	var g errgroup.Group
	g.SetLimit(s.reconcileConcurrency)

	for i, n := range out.Sent {
		g.Go(func() error {
			if err := s.notifications.Delete(ctx, n.ID); err != nil {
				errs[i] = &domain.DigestError{
					Kind:           domain.ErrorKindPersistence,
					UserID:         n.UserID,
					NotificationID: n.ID,
					Err:            fmt.Errorf("remove sent notification: %w", err),
				}
			}
			return nil
		})
	}
	for i, n := range out.Failed {
		g.Go(func() error {
			if err := s.notifications.UpdateStatus(ctx, n.ID, domain.StatusFailed); err != nil {
				errs[len(out.Sent)+i] = &domain.DigestError{
					Kind:           domain.ErrorKindPersistence,
					UserID:         n.UserID,
					NotificationID: n.ID,
					Err:            fmt.Errorf("mark notification failed: %w", err),
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	var collected []error
	for _, err := range errs {
		if err != nil {
			collected = append(collected, err)
		}
	}
	if len(collected) > 0 {
		log.Error("bulletin reconciliation incomplete", zap.Int("failures", len(collected)), zap.Int("total", total))
	}
	return collected
}

// Ingest stores new pending bulletin notifications.
func (s *BulletinService) Ingest(ctx context.Context, notifications []domain.NewBulletinNotification) (int, error) {
	if len(notifications) == 0 {
		return 0, domain.ErrIngestEmpty
	}
	if len(notifications) > domain.MaxIngestBatch {
		return 0, domain.ErrIngestTooLarge
	}
	for i := range notifications {
		if err := notifications[i].Validate(); err != nil {
			return 0, fmt.Errorf("item %d: %w", i, err)
		}
	}

	n, err := s.notifications.CreateMany(ctx, notifications)
	if err != nil {
		return 0, fmt.Errorf("persist notifications: %w", err)
	}
	return n, nil
}

// ResetFailed returns every FAILED bulletin to PENDING so the next run retries it.
func (s *BulletinService) ResetFailed(ctx context.Context) (int, error) {
	n, err := s.notifications.ResetFailed(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("reset failed bulletins", zap.Int("count", n))
	return n, nil
}

// ClearFailed deletes every FAILED bulletin.
func (s *BulletinService) ClearFailed(ctx context.Context) (int, error) {
	n, err := s.notifications.DeleteFailed(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("cleared failed bulletins", zap.Int("count", n))
	return n, nil
}

// Stats returns bulletin counts by status.
func (s *BulletinService) Stats(ctx context.Context) (map[domain.Status]int, error) {
	return s.notifications.CountBulletinsByStatus(ctx)
}
