package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hray3182/remindbot/internal/models"
)

// MemoryReminderRepository keeps reminders in process memory. It is used by
// the "memory" driver and by tests; it follows the same conditional-update
// rules as the SQL repositories.
type MemoryReminderRepository struct {
	mu        sync.Mutex
	reminders map[string]*models.Reminder
	now       func() time.Time
}

func NewMemoryReminderRepository() *MemoryReminderRepository {
	return &MemoryReminderRepository{
		reminders: make(map[string]*models.Reminder),
		now:       time.Now,
	}
}

func (r *MemoryReminderRepository) Create(_ context.Context, reminder *models.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reminder.ID = uuid.NewString()
	reminder.CreatedAt = r.now().UTC()
	reminder.DueAt = reminder.DueAt.UTC()
	stored := *reminder
	r.reminders[reminder.ID] = &stored
	return nil
}

func (r *MemoryReminderRepository) FindByID(_ context.Context, id string) (*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.reminders[id]
	if !ok {
		return nil, nil
	}
	cp := *stored
	return &cp, nil
}

func (r *MemoryReminderRepository) FindPendingByOwner(_ context.Context, ownerID string) ([]*models.Reminder, error) {
	return r.collect(func(rem *models.Reminder) bool {
		return rem.OwnerID == ownerID && !rem.IsCompleted
	}), nil
}

func (r *MemoryReminderRepository) FindDueForNotification(_ context.Context, start, end time.Time) ([]*models.Reminder, error) {
	return r.collect(func(rem *models.Reminder) bool {
		return rem.DueWithin(start, end) && !rem.IsNotified && !rem.IsCompleted
	}), nil
}

func (r *MemoryReminderRepository) UpdateStatus(_ context.Context, id, ownerID string, patch models.StatusPatch) (*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.reminders[id]
	if !ok || stored.OwnerID != ownerID || !patch.Matches(stored) {
		return nil, nil
	}
	patch.Apply(stored)
	cp := *stored
	return &cp, nil
}

func (r *MemoryReminderRepository) Delete(_ context.Context, id, ownerID string) (*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.reminders[id]
	if !ok || stored.OwnerID != ownerID {
		return nil, nil
	}
	delete(r.reminders, id)
	return stored, nil
}

func (r *MemoryReminderRepository) collect(keep func(*models.Reminder) bool) []*models.Reminder {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Reminder
	for _, rem := range r.reminders {
		if keep(rem) {
			cp := *rem
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Reminder) int {
		if c := a.DueAt.Compare(b.DueAt); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// MemoryUserRepository is the in-memory user store.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*models.User)}
}

func (r *MemoryUserRepository) GetOrCreate(_ context.Context, userID string, userName string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		u = &models.User{UserID: userID, CreatedAt: time.Now().UTC()}
		r.users[userID] = u
	}
	u.UserName = userName
	cp := *u
	return &cp, nil
}
