package repository

import (
	"context"
	"time"

	"github.com/hray3182/remindbot/internal/database"
	"github.com/hray3182/remindbot/internal/models"
)

type SQLiteUserRepository struct {
	db *database.SQLite
}

func NewSQLiteUserRepository(db *database.SQLite) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) GetOrCreate(ctx context.Context, userID string, userName string) (*models.User, error) {
	var createdAt int64
	user := &models.User{}
	err := r.db.DB.QueryRowContext(ctx,
		`INSERT INTO users (user_id, user_name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET user_name = excluded.user_name
		 RETURNING user_id, user_name, created_at`,
		userID, userName, time.Now().UnixMilli(),
	).Scan(&user.UserID, &user.UserName, &createdAt)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = time.UnixMilli(createdAt).UTC()
	return user, nil
}
