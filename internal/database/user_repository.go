package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/phrasebot/internal/srs"
	"github.com/example/phrasebot/pkg/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *sqlx.DB
}

var (
	_ srs.TargetSource = (*UserRepository)(nil)
	_ srs.LevelSource  = (*UserRepository)(nil)
)

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns a user by Telegram ID, or (nil, nil) when unknown.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		r.db.Rebind("SELECT * FROM users WHERE telegram_id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %v", err)
	}
	return &user, nil
}

// Create inserts a new user or refreshes the profile fields if one exists
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.DailyTarget <= 0 {
		user.DailyTarget = models.DefaultDailyTarget
	}

	var query string
	if r.db.DriverName() == "postgres" {
		query = `
			INSERT INTO users (
				telegram_id, username, first_name, last_name, is_admin,
				level, daily_target, notification_enabled, notification_hour
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (telegram_id) DO UPDATE SET
				username = EXCLUDED.username,
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				updated_at = NOW()`
	} else {
		query = `
			INSERT INTO users (
				telegram_id, username, first_name, last_name, is_admin,
				level, daily_target, notification_enabled, notification_hour
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (telegram_id) DO UPDATE SET
				username = excluded.username,
				first_name = excluded.first_name,
				last_name = excluded.last_name,
				updated_at = CURRENT_TIMESTAMP`
	}

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.FirstName, user.LastName, user.IsAdmin,
		user.Level, user.DailyTarget, user.NotificationEnabled, user.NotificationHour,
	)
	if err != nil {
		return fmt.Errorf("failed to create/update user: %v", err)
	}
	return nil
}

// Update modifies user settings
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE users SET
			username = ?,
			first_name = ?,
			last_name = ?,
			is_admin = ?,
			level = ?,
			daily_target = ?,
			notification_enabled = ?,
			notification_hour = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE telegram_id = ?`),
		user.Username, user.FirstName, user.LastName, user.IsAdmin,
		user.Level, user.DailyTarget, user.NotificationEnabled, user.NotificationHour,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %v", err)
	}
	return nil
}

// DailyTarget implements srs.TargetSource. Unknown users get 0, which the
// tracker maps to the deployment default.
func (r *UserRepository) DailyTarget(ctx context.Context, userID int64) (int, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, nil
	}
	return user.DailyTarget, nil
}

// PreferredLevel implements srs.LevelSource. Unknown users and users who
// never picked a level get the empty string, which disables the filter.
func (r *UserRepository) PreferredLevel(ctx context.Context, userID int64) (string, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", nil
	}
	return user.Level, nil
}

// GetUsersForNotification returns users who have notifications enabled for
// the given hour of day.
func (r *UserRepository) GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, r.db.Rebind(`
		SELECT * FROM users
		WHERE notification_enabled = ? AND notification_hour = ?`),
		true, hour)
	if err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %v", err)
	}
	return users, nil
}
