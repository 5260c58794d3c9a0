package reminder

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hray3182/remindbot/internal/command"
	"github.com/hray3182/remindbot/internal/models"
)

// Service owns every user-initiated state change of a reminder.
type Service struct {
	store    Store
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger
	onCreate func(*models.Reminder)
}

func NewService(store Store, loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store: store,
		loc:   loc,
		now:   time.Now,
		log:   log.With().Str("component", "reminder").Logger(),
	}
}

// SetClock replaces the time source used for year inference.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// OnCreate registers a callback run after a reminder is persisted.
func (s *Service) OnCreate(fn func(*models.Reminder)) {
	s.onCreate = fn
}

// Location is the zone used to read and render wall-clock times.
func (s *Service) Location() *time.Location {
	return s.loc
}

// CreateFromText parses raw and stores the resulting reminder. Parse failures
// come back as *command.ParseError and nothing is persisted.
func (s *Service) CreateFromText(ctx context.Context, ownerID, raw string) (*models.Reminder, error) {
	cmd, err := command.Parse(raw, s.now(), s.loc)
	if err != nil {
		return nil, err
	}
	return s.CreateReminder(ctx, ownerID, cmd.DueAt, cmd.Body)
}

// CreateReminder stores a new pending, not-notified reminder.
func (s *Service) CreateReminder(ctx context.Context, ownerID string, dueAt time.Time, body string) (*models.Reminder, error) {
	ownerID = strings.TrimSpace(ownerID)
	body = strings.TrimSpace(body)
	if ownerID == "" {
		return nil, &ValidationError{Field: "owner_id", Reason: "must not be empty"}
	}
	if body == "" {
		return nil, &ValidationError{Field: "body", Reason: "must not be empty"}
	}
	if dueAt.IsZero() {
		return nil, &ValidationError{Field: "due_at", Reason: "must be a valid instant"}
	}

	r := &models.Reminder{
		OwnerID: ownerID,
		Body:    body,
		DueAt:   dueAt.UTC(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		s.log.Error().Err(err).Str("owner_id", ownerID).Msg("create reminder failed")
		return nil, backendError("create reminder", err)
	}

	s.log.Info().
		Str("reminder_id", r.ID).
		Str("owner_id", ownerID).
		Time("due_at", r.DueAt).
		Msg("reminder created")

	if s.onCreate != nil {
		s.onCreate(r)
	}
	return r, nil
}

// CompleteReminder marks an owned, not yet completed reminder as completed.
func (s *Service) CompleteReminder(ctx context.Context, ownerID, id string) (*models.Reminder, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(ownerID) == "" {
		return nil, ErrNotFound
	}

	r, err := s.store.UpdateStatus(ctx, id, ownerID, models.MarkCompleted())
	if err != nil {
		s.log.Error().Err(err).Str("reminder_id", id).Msg("complete reminder failed")
		return nil, backendError("complete reminder", err)
	}
	if r == nil {
		return nil, ErrNotFound
	}

	s.log.Info().Str("reminder_id", id).Str("owner_id", ownerID).Msg("reminder completed")
	return r, nil
}

// DeleteReminder removes an owned reminder and returns what was removed.
func (s *Service) DeleteReminder(ctx context.Context, ownerID, id string) (*models.Reminder, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(ownerID) == "" {
		return nil, ErrNotFound
	}

	r, err := s.store.Delete(ctx, id, ownerID)
	if err != nil {
		s.log.Error().Err(err).Str("reminder_id", id).Msg("delete reminder failed")
		return nil, backendError("delete reminder", err)
	}
	if r == nil {
		return nil, ErrNotFound
	}

	s.log.Info().Str("reminder_id", id).Str("owner_id", ownerID).Msg("reminder deleted")
	return r, nil
}

// ListItem is one row of an owner's pending list. Index starts at 1.
type ListItem struct {
	Index      int
	ID         string
	Body       string
	DueAtLocal time.Time
	IsNotified bool
}

// ListPending returns the owner's not-completed reminders, earliest first.
func (s *Service) ListPending(ctx context.Context, ownerID string) ([]ListItem, error) {
	reminders, err := s.store.FindPendingByOwner(ctx, ownerID)
	if err != nil {
		s.log.Error().Err(err).Str("owner_id", ownerID).Msg("list reminders failed")
		return nil, backendError("list reminders", err)
	}

	items := make([]ListItem, 0, len(reminders))
	for i, r := range reminders {
		items = append(items, ListItem{
			Index:      i + 1,
			ID:         r.ID,
			Body:       r.Body,
			DueAtLocal: r.DueAt.In(s.loc),
			IsNotified: r.IsNotified,
		})
	}
	return items, nil
}

// Get returns an owned reminder, hiding other owners' records.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*models.Reminder, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, backendError("get reminder", err)
	}
	if r == nil || r.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return r, nil
}
