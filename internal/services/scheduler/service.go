// Package scheduler runs a recurring job on a re-armed one-shot timer.
//
// At most one job runs at a time. A fire that finds the in-flight slot taken
// is skipped and the next fire is scheduled a full interval later. After a job
// completes the next fire is measured from the completion time, so a slow job
// pushes the schedule back instead of causing a burst.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/rs/zerolog"
)

// Job is the unit of work run on each fire.
type Job func(ctx context.Context) error

// Service defines the interface for the recurring scheduler.
type Service interface {
	Start(ctx context.Context, interval time.Duration) error
	Stop()
	Restart(ctx context.Context, interval time.Duration) error
	TryRun(ctx context.Context, job Job) error
	RunExclusive(ctx context.Context, job Job) error
	Wait(ctx context.Context) error
	TimeUntilNextFire() time.Duration
	Status() models.SchedulerStatus
}

// Impl implements the scheduler Service interface.
type Impl struct {
	clock  Clock
	job    Job
	logger zerolog.Logger

	// slot holds a token while any job (scheduled, manual or exclusive) runs.
	slot chan struct{}

	mu         sync.Mutex
	running    bool
	interval   time.Duration
	nextFireAt time.Time
	timer      Timer
	gen        uint64
	runCtx     context.Context
	lastRunAt  time.Time
	lastErr    string
}

// New creates a scheduler that runs job on the real clock.
func New(logger zerolog.Logger, job Job) *Impl {
	return NewWithClock(logger, RealClock(), job)
}

// NewWithClock creates a scheduler with a custom clock (for testing).
func NewWithClock(logger zerolog.Logger, clock Clock, job Job) *Impl {
	return &Impl{
		clock:  clock,
		job:    job,
		logger: logger,
		slot:   make(chan struct{}, 1),
		runCtx: context.Background(),
	}
}

// Start schedules the first fire one interval from now. Calling Start while
// already scheduled re-anchors the countdown. Jobs run with a context derived
// from ctx that is never cancelled.
func (s *Impl) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", models.ErrInvalidInterval, interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.gen++
	s.running = true
	s.interval = interval
	s.runCtx = context.WithoutCancel(ctx)
	s.armLocked(s.gen)

	s.logger.Info().
		Dur("interval", interval).
		Time("next_fire_at", s.nextFireAt).
		Msg("scheduler started")
	return nil
}

// Stop cancels any pending fire. A job already running completes but does
// not reschedule.
func (s *Impl) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancelLocked()
	s.gen++
	s.running = false
	s.nextFireAt = time.Time{}

	s.logger.Info().Msg("scheduler stopped")
}

// Restart is Stop followed by Start: the new interval is measured from now,
// discarding any time elapsed under the previous interval.
func (s *Impl) Restart(ctx context.Context, interval time.Duration) error {
	return s.Start(ctx, interval)
}

// TryRun runs job outside the schedule if no other job is in flight. It
// returns models.ErrCaptureInFlight without running job otherwise. The
// schedule is not affected.
func (s *Impl) TryRun(ctx context.Context, job Job) error {
	select {
	case s.slot <- struct{}{}:
	default:
		return models.ErrCaptureInFlight
	}
	defer s.release()
	return safeRun(ctx, job)
}

// RunExclusive waits for the in-flight slot, then runs job. It gives up when
// ctx is done.
func (s *Impl) RunExclusive(ctx context.Context, job Job) error {
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer s.release()
	return safeRun(ctx, job)
}

// Wait blocks until no job is in flight or ctx is done.
func (s *Impl) Wait(ctx context.Context) error {
	select {
	case s.slot <- struct{}{}:
		s.release()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TimeUntilNextFire returns the time left before the next fire, floored at zero.
// It is zero when the scheduler is stopped.
func (s *Impl) TimeUntilNextFire() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return 0
	}
	return max(s.nextFireAt.Sub(s.clock.Now()), 0)
}

// Status returns a snapshot of the scheduler state.
func (s *Impl) Status() models.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.SchedulerStatus{
		Running:    s.running,
		Interval:   s.interval,
		NextFireAt: s.nextFireAt,
		InFlight:   len(s.slot) > 0,
		LastRunAt:  s.lastRunAt,
		LastError:  s.lastErr,
	}
}

func (s *Impl) armLocked(gen uint64) {
	s.nextFireAt = s.clock.Now().Add(s.interval)
	s.timer = s.clock.AfterFunc(s.interval, func() { s.fire(gen) })
}

func (s *Impl) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Impl) release() {
	<-s.slot
}

func (s *Impl) fire(gen uint64) {
	s.mu.Lock()
	if !s.running || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil

	select {
	case s.slot <- struct{}{}:
	default:
		s.armLocked(gen)
		s.logger.Info().
			Time("next_fire_at", s.nextFireAt).
			Msg("backup already in flight, skipping scheduled run")
		s.mu.Unlock()
		return
	}
	ctx := s.runCtx
	s.mu.Unlock()

	err := safeRun(ctx, s.job)
	s.release()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastRunAt = s.clock.Now()
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
		s.logger.Error().Err(err).Msg("scheduled run failed, retrying on next fire")
	}

	if s.running && gen == s.gen {
		s.armLocked(gen)
		s.logger.Debug().Time("next_fire_at", s.nextFireAt).Msg("next run scheduled")
	}
}

func safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job(ctx)
}

// FormatCountdown renders d as "MM:SS", or "HH:MM:SS" from one hour up.
// Negative durations render as zero.
func FormatCountdown(d time.Duration) string {
	total := int64(max(d, 0) / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}
