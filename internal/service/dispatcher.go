package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/octopus/bulletin-digest/internal/bulletin"
	"github.com/octopus/bulletin-digest/internal/domain"
	"github.com/octopus/bulletin-digest/internal/mailer"
	"github.com/octopus/bulletin-digest/internal/repository"
)

// DefaultBatchSize is how many users are processed concurrently in one wave.
const DefaultBatchSize = 10

type userState int

const (
	userDelivered userState = iota
	userSkipped
	userFailed
	userAborted
)

// userResult is what a single user's task reports back to the batch join.
type userResult struct {
	run       bulletin.UserRun
	state     userState
	discarded []string
	emailed   bool
	errs      []error
}

// Dispatcher delivers digests to users in sequential waves of at most
// batchSize concurrent users.
type Dispatcher struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	mail          mailer.Mailer
	batchSize     int
	now           func() time.Time
	logger        *zap.Logger
}

func NewDispatcher(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	mail mailer.Mailer,
	batchSize int,
	now func() time.Time,
	logger *zap.Logger,
) *Dispatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Dispatcher{
		notifications: notifications,
		users:         users,
		mail:          mail,
		batchSize:     batchSize,
		now:           now,
		logger:        logger,
	}
}

// Dispatch processes an ordered pending set. notifications must keep each
// user's entries contiguous and in creation order.
//
// Batches are assembled lazily: a batch only starts after the previous one
// has settled, so a user who failed in an earlier batch is known before any
// later run of theirs is scheduled, and that run is dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, notifications []domain.Notification, window time.Duration, force bool) Outcome {
	var out Outcome
	failedUsers := make(map[string]struct{})
	batch := make([]bulletin.UserRun, 0, d.batchSize)

	for _, run := range bulletin.SplitByUser(notifications) {
		if _, failed := failedUsers[run.UserID]; failed {
			d.logger.Debug("dropping notifications of user already failed this run",
				zap.String("user_id", run.UserID), zap.Strings("notification_ids", run.IDs()))
			continue
		}
		batch = append(batch, run)
		if len(batch) >= d.batchSize {
			d.processBatch(ctx, batch, window, force, &out, failedUsers)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		d.processBatch(ctx, batch, window, force, &out, failedUsers)
	}

	return out
}

// processBatch runs every user of the batch concurrently and waits for all
// of them. No task can cancel its siblings; the accumulators are only touched
// after the join.
func (d *Dispatcher) processBatch(
	ctx context.Context,
	batch []bulletin.UserRun,
	window time.Duration,
	force bool,
	out *Outcome,
	failedUsers map[string]struct{},
) {
	results := make([]userResult, len(batch))

	var g errgroup.Group
	for i, run := range batch {
		g.Go(func() error {
			results[i] = d.settle(ctx, run, window, force)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		out.Errors = append(out.Errors, r.errs...)
		out.Discarded = append(out.Discarded, r.discarded...)
		if r.emailed {
			out.EmailsSent++
		}

		remaining := bulletin.Without(r.run.Notifications, r.discarded)
		switch r.state {
		case userDelivered:
			out.Sent = append(out.Sent, remaining...)
		case userSkipped:
			out.Skipped = append(out.Skipped, remaining...)
		case userFailed:
			failedUsers[r.run.UserID] = struct{}{}
			out.Failed = append(out.Failed, remaining...)
		case userAborted:
			// Left PENDING for the next run.
		}
	}
}

// settle runs sendSingle and converts a panic into a batch_join error so one
// misbehaving task never takes the batch down.
func (d *Dispatcher) settle(ctx context.Context, run bulletin.UserRun, window time.Duration, force bool) (res userResult) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("bulletin task panicked", zap.String("user_id", run.UserID), zap.Any("panic", p))
			res = userResult{
				run:   run,
				state: userAborted,
				errs: []error{&domain.DigestError{
					Kind:   domain.ErrorKindBatchJoin,
					UserID: run.UserID,
					Err:    fmt.Errorf("batch processing failed: %v", p),
				}},
			}
		}
	}()
	return d.sendSingle(ctx, run, window, force)
}

func (d *Dispatcher) sendSingle(ctx context.Context, run bulletin.UserRun, window time.Duration, force bool) userResult {
	res := userResult{run: run}
	log := d.logger.With(zap.String("user_id", run.UserID))

	// report records err; a terminal kind also fails the user's whole run.
	report := func(kind domain.ErrorKind, err error) {
		res.errs = append(res.errs, &domain.DigestError{Kind: kind, UserID: run.UserID, Err: err})
		if kind.Terminal() {
			res.state = userFailed
			log.Warn("bulletin failed for user", zap.String("kind", string(kind)), zap.Error(err))
			return
		}
		log.Error("bulletin step failed after delivery", zap.String("kind", string(kind)), zap.Error(err))
	}
	fail := func(kind domain.ErrorKind, err error) userResult {
		report(kind, err)
		return res
	}

	user, err := d.users.GetByID(ctx, run.UserID)
	if err != nil {
		return fail(domain.ErrorKindLookup, err)
	}
	if user.Email == "" {
		return fail(domain.ErrorKindLookup, domain.ErrUserNoEmail)
	}

	now := d.now()
	if !force && user.BulletinThrottled(now, window) {
		log.Debug("bulletin throttled", zap.Timep("last_bulletin_sent_at", user.LastBulletinSentAt))
		res.state = userSkipped
		return res
	}

	grouped := bulletin.Group(run.Notifications, user.Settings)

	if len(grouped.Discarded) > 0 {
		if _, err := d.notifications.DeleteMany(ctx, grouped.Discarded); err != nil {
			return fail(domain.ErrorKindDiscard, fmt.Errorf("clear notifications disabled by settings: %w", err))
		}
		res.discarded = grouped.Discarded
	}

	if grouped.Digest.Empty() {
		res.state = userDelivered
		return res
	}

	if err := d.mail.SendDigest(ctx, mailer.Message{To: user.Email, UserID: user.ID, Digest: grouped.Digest}); err != nil {
		return fail(domain.ErrorKindDelivery, err)
	}
	res.emailed = true
	res.state = userDelivered

	// The email is out; a failed timestamp write is reported but does not
	// change the user's outcome.
	if err := d.users.UpdateLastBulletinSentAt(ctx, user.ID, now); err != nil {
		report(domain.ErrorKindPersistence, fmt.Errorf("update last bulletin time: %w", err))
	}

	log.Info("bulletin sent",
		zap.Int("notifications", len(run.Notifications)),
		zap.Int("delivered", grouped.Digest.Len()),
		zap.Int("superseded", len(grouped.Superseded)),
		zap.Int("discarded", len(grouped.Discarded)),
	)
	return res
}
