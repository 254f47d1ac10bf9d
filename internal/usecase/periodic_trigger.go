package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/user/pricewatch-service/internal/entity"
	"go.uber.org/zap"
)

// Runner is what the trigger drives.
type Runner interface {
	RunOnce(ctx context.Context, trigger string) (entity.RunResult, error)
}

// PeriodicTrigger runs the monitor once on start and then every interval
// until stopped. Manual runs go through TriggerNow.
type PeriodicTrigger struct {
	runner   Runner
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

const defaultCheckInterval = 10 * time.Minute

// NewPeriodicTrigger creates the trigger. A non-positive interval falls back
// to ten minutes.
func NewPeriodicTrigger(runner Runner, interval time.Duration, logger *zap.Logger) *PeriodicTrigger {
	if interval <= 0 {
		logger.Warn("invalid check interval, using default",
			zap.Duration("interval", interval),
			zap.Duration("default", defaultCheckInterval))
		interval = defaultCheckInterval
	}
	return &PeriodicTrigger{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the timer loop. It returns false, doing nothing, when the
// loop is already running.
func (t *PeriodicTrigger) Start(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.loop(ctx, t.done)

	t.logger.Info("periodic price checks started", zap.Duration("interval", t.interval))
	return true
}

// Stop cancels the timer and waits for the loop to exit. A run in flight sees
// its context cancelled. Stop on a stopped trigger is a no-op.
func (t *PeriodicTrigger) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	t.logger.Info("periodic price checks stopped")
}

// Running reports whether the timer loop is active.
func (t *PeriodicTrigger) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// TriggerNow runs a pass out of band and waits for it.
func (t *PeriodicTrigger) TriggerNow(ctx context.Context) (entity.RunResult, error) {
	return t.runner.RunOnce(ctx, entity.TriggerManual)
}

func (t *PeriodicTrigger) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	t.tick(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

func (t *PeriodicTrigger) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("periodic price check panicked", zap.Any("panic", r))
		}
	}()

	_, err := t.runner.RunOnce(ctx, entity.TriggerPeriodic)
	switch {
	case err == nil:
	case errors.Is(err, ErrRunInProgress):
		t.logger.Info("skipping periodic price check, previous run still active")
	case errors.Is(err, context.Canceled):
		t.logger.Info("periodic price check interrupted")
	default:
		t.logger.Error("periodic price check failed", zap.Error(err))
	}
}
