package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/phrasebot/internal/srs"
	"github.com/example/phrasebot/pkg/models"
)

// EventRepository is the append-only review audit trail. Rows are written
// once and never updated or deleted.
type EventRepository struct {
	db *sqlx.DB
}

var _ srs.EventLog = (*EventRepository)(nil)

// NewEventRepository creates a new repository instance
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append stores one review event.
func (r *EventRepository) Append(ctx context.Context, event *models.ReviewEvent) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO review_events (id, user_id, item_id, rating, response_ms, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		event.ID, event.UserID, event.ItemID, event.Rating, event.ResponseMs, event.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: append event: %v", srs.ErrStorageUnavailable, err)
	}
	return nil
}

// Counts returns the total number of events for the user and how many of
// them carried a rating of at least pass.
func (r *EventRepository) Counts(ctx context.Context, userID int64, pass srs.Rating) (int, int, error) {
	var row struct {
		Total  int `db:"total"`
		Passed int `db:"passed"`
	}
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN rating >= ? THEN 1 ELSE 0 END), 0) AS passed
		FROM review_events
		WHERE user_id = ?`), int(pass), userID)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: count events: %v", srs.ErrStorageUnavailable, err)
	}
	return row.Total, row.Passed, nil
}

// RecentByUser returns the user's latest events, newest first.
func (r *EventRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]models.ReviewEvent, error) {
	var events []models.ReviewEvent
	err := r.db.SelectContext(ctx, &events, r.db.Rebind(`
		SELECT * FROM review_events
		WHERE user_id = ?
		ORDER BY reviewed_at DESC
		LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent events: %v", err)
	}
	return events, nil
}
