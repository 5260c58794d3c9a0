package reminder

import (
	"context"
	"crypto/subtle"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hray3182/remindbot/internal/models"
)

const (
	DefaultLookahead        = time.Hour
	DefaultCandidateTimeout = 10 * time.Second
	DefaultConcurrency      = 4
)

// Notifier delivers one push message for a due reminder.
type Notifier interface {
	Notify(ctx context.Context, r *models.Reminder, minutesLeft int) error
}

type ScannerConfig struct {
	// Lookahead is the width of the due window (now, now+Lookahead].
	Lookahead time.Duration
	// CandidateTimeout bounds the push call of a single candidate.
	CandidateTimeout time.Duration
	// Concurrency is the number of candidates processed in parallel.
	Concurrency int
	// APIKey guards Trigger. An empty key rejects every trigger.
	APIKey string
}

func (c ScannerConfig) withDefaults() ScannerConfig {
	if c.Lookahead <= 0 {
		c.Lookahead = DefaultLookahead
	}
	if c.CandidateTimeout <= 0 {
		c.CandidateTimeout = DefaultCandidateTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// Summary describes one scan.
type Summary struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Candidates  int
	Notified    int
	// Failed candidates were not delivered and stay eligible for the next scan.
	Failed int
	// Skipped candidates were delivered but another writer had already
	// notified, completed or deleted them before the mark.
	Skipped int
}

// Scanner finds reminders entering the due window and notifies each once.
type Scanner struct {
	store    Store
	notifier Notifier
	cfg      ScannerConfig
	log      zerolog.Logger
}

func NewScanner(store Store, notifier Notifier, cfg ScannerConfig, log zerolog.Logger) *Scanner {
	return &Scanner{
		store:    store,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
		log:      log.With().Str("component", "scanner").Logger(),
	}
}

// Lookahead returns the configured window width.
func (s *Scanner) Lookahead() time.Duration {
	return s.cfg.Lookahead
}

// Trigger runs a scan if secret matches the configured key.
func (s *Scanner) Trigger(ctx context.Context, secret string, now time.Time) (Summary, error) {
	if s.cfg.APIKey == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.APIKey)) != 1 {
		s.log.Warn().Msg("scan trigger rejected")
		return Summary{}, ErrUnauthorized
	}
	return s.Run(ctx, now)
}

// Run scans (now, now+Lookahead]. It fails only when the candidate query
// fails; per-candidate errors are counted in the summary.
func (s *Scanner) Run(ctx context.Context, now time.Time) (Summary, error) {
	sum := Summary{
		WindowStart: now,
		WindowEnd:   now.Add(s.cfg.Lookahead),
	}

	candidates, err := s.store.FindDueForNotification(ctx, sum.WindowStart, sum.WindowEnd)
	if err != nil {
		s.log.Error().Err(err).Msg("query due reminders failed")
		return sum, backendError("find due reminders", err)
	}
	sum.Candidates = len(candidates)
	s.log.Info().Int("candidates", sum.Candidates).Time("window_end", sum.WindowEnd).Msg("scan started")

	var notified, failed, skipped atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, r := range candidates {
		g.Go(func() error {
			switch s.process(ctx, r, now) {
			case outcomeNotified:
				notified.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	sum.Notified = int(notified.Load())
	sum.Failed = int(failed.Load())
	sum.Skipped = int(skipped.Load())

	s.log.Info().
		Int("candidates", sum.Candidates).
		Int("notified", sum.Notified).
		Int("failed", sum.Failed).
		Int("skipped", sum.Skipped).
		Msg("scan finished")
	return sum, nil
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeNotified
	outcomeSkipped
)

func (s *Scanner) process(ctx context.Context, r *models.Reminder, now time.Time) outcome {
	log := s.log.With().Str("reminder_id", r.ID).Str("owner_id", r.OwnerID).Logger()
	minutesLeft := MinutesLeft(r.DueAt, now)

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.CandidateTimeout)
	err := s.notifier.Notify(sendCtx, r, minutesLeft)
	cancel()
	if err != nil {
		log.Warn().Err(err).Int("minutes_left", minutesLeft).Msg("notification failed")
		return outcomeFailed
	}

	// The message is out; record it even if the caller gave up meanwhile.
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CandidateTimeout)
	defer cancel()
	updated, err := s.store.UpdateStatus(markCtx, r.ID, r.OwnerID, models.MarkNotified())
	if err != nil {
		log.Error().Err(err).Msg("mark notified failed after delivery")
		return outcomeFailed
	}
	if updated == nil {
		log.Debug().Msg("reminder changed by another writer before mark")
		return outcomeSkipped
	}

	log.Info().Int("minutes_left", minutesLeft).Msg("notification sent")
	return outcomeNotified
}
