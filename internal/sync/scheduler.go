package sync

import (
	"context"
	"errors"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/kallerud/lotline/internal/logging"
	"github.com/rs/zerolog"
)

// Scheduler errors.
var (
	ErrSchedulerAlreadyRunning = errors.New("scheduler already running")
	ErrSchedulerNotRunning     = errors.New("scheduler not running")
)

// TickFunc performs one reconciliation pass. It receives the scheduler's
// context and must return promptly once that context is cancelled.
type TickFunc func(ctx context.Context)

// Scheduler drives a synchronizer on a fixed interval, with out-of-band
// forced ticks. At most one tick is in flight at a time; triggers that
// arrive while one is running are dropped, not queued, so a slow poll
// can never pile up duplicate requests behind itself.
type Scheduler struct {
	name     string
	interval time.Duration
	tick     TickFunc
	logger   zerolog.Logger

	mu       gosync.Mutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       gosync.WaitGroup
	force    chan struct{}
	inFlight atomic.Bool
}

// NewScheduler creates a scheduler for the named synchronizer.
func NewScheduler(name string, interval time.Duration, tick TickFunc) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		tick:     tick,
		logger:   logging.Component(name),
		force:    make(chan struct{}, 1),
	}
}

// Start begins the tick loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerAlreadyRunning
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.logger.Debug().Dur("interval", s.interval).Msg("scheduler starting")

	s.wg.Add(1)
	go s.runLoop()

	return nil
}

// Stop halts the loop and waits for any in-flight tick to finish. The
// tick's context is cancelled, so in-flight requests unwind instead of
// being applied.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Debug().Msg("scheduler stopped")
	return nil
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ForceNow requests an immediate tick instead of waiting for the next
// interval. If a tick is already in flight the request is dropped.
func (s *Scheduler) ForceNow() error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	if !running {
		return ErrSchedulerNotRunning
	}

	select {
	case s.force <- struct{}{}:
	default:
		// A forced tick is already pending.
	}
	return nil
}

func (s *Scheduler) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First pass immediately; a freshly mounted view should not wait a
	// full interval for data.
	s.runTick()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runTick()
		case <-s.force:
			s.runTick()
		}
	}
}

// runTick starts one tick unless one is already in flight.
func (s *Scheduler) runTick() {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("tick suppressed, request already in flight")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		s.tick(s.ctx)
	}()
}
