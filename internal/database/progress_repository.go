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

// ProgressRepository persists per-(user, day) daily progress. The completed
// item set lives in daily_progress_items; the row in daily_progress carries
// the day's target.
type ProgressRepository struct {
	db *sqlx.DB
}

var _ srs.ProgressStore = (*ProgressRepository)(nil)

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Progress returns the record for the day, or (nil, nil) when none exists.
func (r *ProgressRepository) Progress(ctx context.Context, userID int64, day string) (*models.DailyProgress, error) {
	var row struct {
		UserID      int64        `db:"user_id"`
		Day         string       `db:"day"`
		TargetCount int          `db:"target_count"`
		UpdatedAt   sql.NullTime `db:"updated_at"`
	}
	err := r.db.GetContext(ctx, &row,
		r.db.Rebind("SELECT user_id, day, target_count, updated_at FROM daily_progress WHERE user_id = ? AND day = ?"),
		userID, day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get progress: %v", srs.ErrStorageUnavailable, err)
	}

	p := models.NewDailyProgress(userID, day, row.TargetCount)
	if row.UpdatedAt.Valid {
		p.UpdatedAt = row.UpdatedAt.Time
	}
	err = r.db.SelectContext(ctx, &p.ItemIDs,
		r.db.Rebind("SELECT item_id FROM daily_progress_items WHERE user_id = ? AND day = ? ORDER BY item_id"),
		userID, day)
	if err != nil {
		return nil, fmt.Errorf("%w: get progress items: %v", srs.ErrStorageUnavailable, err)
	}
	return p, nil
}

// SaveProgress upserts the day row and inserts any item ids not yet stored.
// Item rows are never deleted; the set only grows within a day.
func (r *ProgressRepository) SaveProgress(ctx context.Context, progress *models.DailyProgress) error {
	var upsert string
	if r.db.DriverName() == "postgres" {
		upsert = `
			INSERT INTO daily_progress (user_id, day, target_count, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (user_id, day) DO UPDATE SET
				target_count = EXCLUDED.target_count,
				updated_at = NOW()`
	} else {
		upsert = `
			INSERT INTO daily_progress (user_id, day, target_count, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (user_id, day) DO UPDATE SET
				target_count = excluded.target_count,
				updated_at = CURRENT_TIMESTAMP`
	}
	if _, err := r.db.ExecContext(ctx, upsert, progress.UserID, progress.Day, progress.TargetCount); err != nil {
		return fmt.Errorf("%w: save progress: %v", srs.ErrStorageUnavailable, err)
	}

	var insert string
	if r.db.DriverName() == "postgres" {
		insert = `
			INSERT INTO daily_progress_items (user_id, day, item_id)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`
	} else {
		insert = `
			INSERT OR IGNORE INTO daily_progress_items (user_id, day, item_id)
			VALUES (?, ?, ?)`
	}
	for _, itemID := range progress.ItemIDs {
		if _, err := r.db.ExecContext(ctx, insert, progress.UserID, progress.Day, itemID); err != nil {
			return fmt.Errorf("%w: save progress item: %v", srs.ErrStorageUnavailable, err)
		}
	}
	return nil
}

// ActiveDays returns up to limit day keys with at least one completed item,
// most recent first.
func (r *ProgressRepository) ActiveDays(ctx context.Context, userID int64, limit int) ([]string, error) {
	var days []string
	err := r.db.SelectContext(ctx, &days, r.db.Rebind(`
		SELECT DISTINCT day FROM daily_progress_items
		WHERE user_id = ?
		ORDER BY day DESC
		LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: get active days: %v", srs.ErrStorageUnavailable, err)
	}
	return days, nil
}
