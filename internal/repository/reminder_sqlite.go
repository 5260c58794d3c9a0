package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hray3182/remindbot/internal/database"
	"github.com/hray3182/remindbot/internal/models"
)

// SQLiteReminderRepository stores reminders in a local SQLite file.
type SQLiteReminderRepository struct {
	db *database.SQLite
	// now stamps created_at; replaced in tests.
	now func() time.Time
}

func NewSQLiteReminderRepository(db *database.SQLite) *SQLiteReminderRepository {
	return &SQLiteReminderRepository{db: db, now: time.Now}
}

func (r *SQLiteReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	reminder.ID = uuid.NewString()
	reminder.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	_, err := r.db.DB.ExecContext(ctx,
		`INSERT INTO reminders (id, owner_id, body, due_at, is_notified, is_completed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		reminder.ID, reminder.OwnerID, reminder.Body, reminder.DueAt.UnixMilli(),
		reminder.IsNotified, reminder.IsCompleted, reminder.CreatedAt.UnixMilli(),
	)
	return err
}

func (r *SQLiteReminderRepository) FindByID(ctx context.Context, id string) (*models.Reminder, error) {
	row := r.db.DB.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)
	return scanSQLiteOptional(row)
}

func (r *SQLiteReminderRepository) FindPendingByOwner(ctx context.Context, ownerID string) ([]*models.Reminder, error) {
	rows, err := r.db.DB.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE owner_id = ? AND is_completed = 0
		 ORDER BY due_at ASC, created_at ASC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteAll(rows)
}

func (r *SQLiteReminderRepository) FindDueForNotification(ctx context.Context, start, end time.Time) ([]*models.Reminder, error) {
	rows, err := r.db.DB.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE due_at > ? AND due_at <= ? AND is_notified = 0 AND is_completed = 0
		 ORDER BY due_at ASC`,
		start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLiteAll(rows)
}

func (r *SQLiteReminderRepository) UpdateStatus(ctx context.Context, id, ownerID string, patch models.StatusPatch) (*models.Reminder, error) {
	completed, notified := patchFlags(patch)
	row := r.db.DB.QueryRowContext(ctx,
		`UPDATE reminders
		 SET is_completed = (is_completed OR ?1), is_notified = (is_notified OR ?2)
		 WHERE id = ?3 AND owner_id = ?4
		   AND (NOT ?1 OR is_completed = 0)
		   AND (NOT ?2 OR is_notified = 0)
		 RETURNING `+reminderColumns,
		completed, notified, id, ownerID,
	)
	return scanSQLiteOptional(row)
}

func (r *SQLiteReminderRepository) Delete(ctx context.Context, id, ownerID string) (*models.Reminder, error) {
	row := r.db.DB.QueryRowContext(ctx,
		`DELETE FROM reminders WHERE id = ? AND owner_id = ?
		 RETURNING `+reminderColumns,
		id, ownerID,
	)
	return scanSQLiteOptional(row)
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row sqlScanner) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	var dueAt, createdAt int64
	if err := row.Scan(&reminder.ID, &reminder.OwnerID, &reminder.Body, &dueAt,
		&reminder.IsNotified, &reminder.IsCompleted, &createdAt); err != nil {
		return nil, err
	}
	reminder.DueAt = time.UnixMilli(dueAt).UTC()
	reminder.CreatedAt = time.UnixMilli(createdAt).UTC()
	return reminder, nil
}

func scanSQLiteOptional(row *sql.Row) (*models.Reminder, error) {
	reminder, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return reminder, err
}

func scanSQLiteAll(rows *sql.Rows) ([]*models.Reminder, error) {
	var reminders []*models.Reminder
	for rows.Next() {
		reminder, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}
