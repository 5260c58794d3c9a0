package reminder

import (
	"context"
	"time"

	"github.com/hray3182/remindbot/internal/models"
)

// Store is the persistence contract for reminders. Every method is atomic
// for a single record; no method spans several records in a transaction.
//
// Lookups return (nil, nil) when nothing matches.
type Store interface {
	// Create assigns ID and CreatedAt on r and persists it.
	Create(ctx context.Context, r *models.Reminder) error

	FindByID(ctx context.Context, id string) (*models.Reminder, error)

	// FindPendingByOwner returns the owner's not-completed reminders ordered
	// by DueAt ascending.
	FindPendingByOwner(ctx context.Context, ownerID string) ([]*models.Reminder, error)

	// FindDueForNotification returns reminders with DueAt in (start, end]
	// that are neither notified nor completed.
	FindDueForNotification(ctx context.Context, start, end time.Time) ([]*models.Reminder, error)

	// UpdateStatus applies patch to the reminder owned by ownerID, only if
	// the patch preconditions still hold at write time. It returns the updated
	// reminder, or nil when no matching record exists.
	UpdateStatus(ctx context.Context, id, ownerID string, patch models.StatusPatch) (*models.Reminder, error)

	// Delete removes the reminder owned by ownerID and returns it, or nil
	// when nothing was removed.
	Delete(ctx context.Context, id, ownerID string) (*models.Reminder, error)
}
