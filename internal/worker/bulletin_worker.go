package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/octopus/bulletin-digest/internal/service"
)

// Runner is the part of the bulletin service the worker drives.
type Runner interface {
	SendAll(ctx context.Context, force bool, digestDelta time.Duration) service.Result
}

// BulletinWorker triggers a digest run every interval.
//
// Overlap is handled by the service: a tick that lands while a manual run
// is still going reports a busy result and is otherwise a no-op.
type BulletinWorker struct {
	runner     Runner
	interval   time.Duration
	delta      time.Duration
	runOnStart bool
	logger     *zap.Logger
	wg         sync.WaitGroup
}

func NewBulletinWorker(
	runner Runner,
	interval time.Duration,
	delta time.Duration,
	runOnStart bool,
	logger *zap.Logger,
) *BulletinWorker {
	return &BulletinWorker{
		runner:     runner,
		interval:   interval,
		delta:      delta,
		runOnStart: runOnStart,
		logger:     logger,
	}
}

// Start launches Run in a goroutine. Cancel ctx and call Wait to stop it.
func (bw *BulletinWorker) Start(ctx context.Context) {
	bw.wg.Add(1)
	go func() {
		defer bw.wg.Done()
		bw.Run(ctx)
	}()
}

// Wait blocks until the worker has returned, including any in-flight run,
// which always completes its reconciliation.
func (bw *BulletinWorker) Wait() {
	bw.wg.Wait()
}

// Run ticks every interval and starts a bulletin run.
// Stops cleanly when ctx is cancelled.
func (bw *BulletinWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(bw.interval)
	defer ticker.Stop()

	bw.logger.Info("bulletin worker started",
		zap.Duration("interval", bw.interval),
		zap.Duration("digest_delta", bw.delta),
		zap.Bool("run_on_start", bw.runOnStart),
	)

	if bw.runOnStart {
		bw.tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			bw.logger.Info("bulletin worker stopping")
			return
		case <-ticker.C:
			bw.tick(ctx)
		}
	}
}

// tick runs detached from ctx cancellation: once emails are out, the store
// writes recording them must land or the next run would resend them.
// Cancellation only stops further ticks.
func (bw *BulletinWorker) tick(ctx context.Context) {
	res := bw.runner.SendAll(context.WithoutCancel(ctx), false, bw.delta)
	if res.Busy() {
		bw.logger.Warn("skipping scheduled bulletin run, another run is in progress")
		return
	}
	for _, err := range res.Errors {
		bw.logger.Warn("bulletin run error", zap.Error(err))
	}
}
