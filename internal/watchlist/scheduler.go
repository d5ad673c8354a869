package watchlist

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrSchedulerStarted = errors.New("scheduler already started")
	ErrSchedulerStopped = errors.New("scheduler stopped")
)

// Scheduler runs refresh once at start and then on every tick.
// It can be started once and stopped once; it is never restarted.
type Scheduler struct {
	interval time.Duration
	refresh  func(context.Context) error
	logger   *zap.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(interval time.Duration, refresh func(context.Context) error, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		refresh:  refresh,
		logger:   logger,
	}
}

// Start launches the refresh loop. The first refresh runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}
	if s.started {
		return ErrSchedulerStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// Run immediately once at startup
		s.runOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("refresh scheduler stopped")
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	s.logger.Info("refresh scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels the loop and waits for an in-progress refresh to return.
// Calls after the first are no-ops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("refresh panic recovered", zap.Any("panic", r))
		}
	}()

	// failures are logged by the store and retried on the next tick
	_ = s.refresh(ctx)
}
