package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/reminder"
)

// Scanner is the scan entry point driven by the scheduler.
type Scanner interface {
	Run(ctx context.Context, now time.Time) (reminder.Summary, error)
	Trigger(ctx context.Context, secret string, now time.Time) (reminder.Summary, error)
	Lookahead() time.Duration
}

// Scheduler runs scans on a cron schedule and on demand. All scans started
// through one Scheduler are serialized.
type Scheduler struct {
	scanner  Scanner
	cron     *cron.Cron
	spec     string
	notifyCh chan struct{}
	mu       sync.Mutex
	now      func() time.Time
	log      zerolog.Logger
}

func New(scanner Scanner, spec string, loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		scanner:  scanner,
		cron:     cron.New(cron.WithLocation(loc)),
		spec:     spec,
		notifyCh: make(chan struct{}, 1),
		now:      time.Now,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Notify triggers an immediate scan. Non-blocking if a scan is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// ReminderCreated nudges the loop when a new reminder is already inside the
// due window, so it does not wait for the next tick.
func (s *Scheduler) ReminderCreated(r *models.Reminder) {
	now := s.now()
	if r.DueWithin(now, now.Add(s.scanner.Lookahead())) {
		s.Notify()
	}
}

// RunNow runs one scan, waiting for any scan in progress to finish first.
func (s *Scheduler) RunNow(ctx context.Context) (reminder.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanner.Run(ctx, s.now())
}

// Trigger is the secret-guarded variant of RunNow.
func (s *Scheduler) Trigger(ctx context.Context, secret string, now time.Time) (reminder.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanner.Trigger(ctx, secret, now)
}

// Start runs the loop until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, s.Notify); err != nil {
		return fmt.Errorf("add scan schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	defer func() {
		<-s.cron.Stop().Done()
		s.log.Info().Msg("scheduler stopped")
	}()
	s.log.Info().Str("schedule", s.spec).Msg("scheduler started")

	// Run first check
	s.check(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.notifyCh:
			s.check(ctx)
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	if _, err := s.RunNow(ctx); err != nil {
		s.log.Error().Err(err).Msg("scheduled scan failed")
	}
}
