package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hray3182/remindbot/internal/database"
	"github.com/hray3182/remindbot/internal/models"
)

const reminderColumns = `id, owner_id, body, due_at, is_notified, is_completed, created_at`

// ReminderRepository stores reminders in Postgres.
type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	reminder.ID = uuid.NewString()
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (id, owner_id, body, due_at, is_notified, is_completed)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		reminder.ID, reminder.OwnerID, reminder.Body, reminder.DueAt.UTC(),
		reminder.IsNotified, reminder.IsCompleted,
	).Scan(&reminder.CreatedAt)
}

func (r *ReminderRepository) FindByID(ctx context.Context, id string) (*models.Reminder, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = $1`,
		id,
	)
	return scanOptional(row)
}

func (r *ReminderRepository) FindPendingByOwner(ctx context.Context, ownerID string) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE owner_id = $1 AND is_completed = false
		 ORDER BY due_at ASC, created_at ASC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *ReminderRepository) FindDueForNotification(ctx context.Context, start, end time.Time) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE due_at > $1 AND due_at <= $2 AND is_notified = false AND is_completed = false
		 ORDER BY due_at ASC`,
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

// UpdateStatus is a single conditional UPDATE, so concurrent writers cannot
// both flip the same flag.
func (r *ReminderRepository) UpdateStatus(ctx context.Context, id, ownerID string, patch models.StatusPatch) (*models.Reminder, error) {
	completed, notified := patchFlags(patch)
	row := r.db.Pool.QueryRow(ctx,
		`UPDATE reminders
		 SET is_completed = is_completed OR $3, is_notified = is_notified OR $4
		 WHERE id = $1 AND owner_id = $2
		   AND (NOT $3 OR is_completed = false)
		   AND (NOT $4 OR is_notified = false)
		 RETURNING `+reminderColumns,
		id, ownerID, completed, notified,
	)
	return scanOptional(row)
}

func (r *ReminderRepository) Delete(ctx context.Context, id, ownerID string) (*models.Reminder, error) {
	row := r.db.Pool.QueryRow(ctx,
		`DELETE FROM reminders WHERE id = $1 AND owner_id = $2
		 RETURNING `+reminderColumns,
		id, ownerID,
	)
	return scanOptional(row)
}

func patchFlags(p models.StatusPatch) (completed, notified bool) {
	return p.Completed != nil && *p.Completed, p.Notified != nil && *p.Notified
}

func scanReminder(row pgx.Row) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	if err := row.Scan(&reminder.ID, &reminder.OwnerID, &reminder.Body, &reminder.DueAt,
		&reminder.IsNotified, &reminder.IsCompleted, &reminder.CreatedAt); err != nil {
		return nil, err
	}
	reminder.DueAt = reminder.DueAt.UTC()
	return reminder, nil
}

func scanOptional(row pgx.Row) (*models.Reminder, error) {
	reminder, err := scanReminder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return reminder, err
}

func scanAll(rows pgx.Rows) ([]*models.Reminder, error) {
	var reminders []*models.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}
