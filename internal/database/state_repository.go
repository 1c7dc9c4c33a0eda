package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/phrasebot/internal/srs"
	"github.com/example/phrasebot/pkg/models"
)

// StateRepository persists per-(user, item) memory states. Saves are
// optimistic: the row version must still match the version the state was
// loaded with, otherwise the update lost a race and the caller retries.
type StateRepository struct {
	db *sqlx.DB
}

var _ srs.StateStore = (*StateRepository)(nil)

// NewStateRepository creates a new repository instance
func NewStateRepository(db *sqlx.DB) *StateRepository {
	return &StateRepository{db: db}
}

// State returns the state for the pair, or (nil, nil) when none exists yet.
func (r *StateRepository) State(ctx context.Context, userID, itemID int64) (*models.MemoryState, error) {
	var state models.MemoryState
	err := r.db.GetContext(ctx, &state,
		r.db.Rebind("SELECT * FROM memory_states WHERE user_id = ? AND item_id = ?"),
		userID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get state: %v", srs.ErrStorageUnavailable, err)
	}
	return &state, nil
}

// States returns all states for the user keyed by item id.
func (r *StateRepository) States(ctx context.Context, userID int64) (map[int64]*models.MemoryState, error) {
	var rows []models.MemoryState
	err := r.db.SelectContext(ctx, &rows,
		r.db.Rebind("SELECT * FROM memory_states WHERE user_id = ?"), userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get states: %v", srs.ErrStorageUnavailable, err)
	}
	out := make(map[int64]*models.MemoryState, len(rows))
	for i := range rows {
		out[rows[i].ItemID] = &rows[i]
	}
	return out, nil
}

// SaveState persists the state. Version 0 inserts a fresh row; anything
// else updates the row guarded by WHERE version = old. A conflicting insert
// or a zero-row update means another writer won and the save returns
// ErrConcurrentModification.
func (r *StateRepository) SaveState(ctx context.Context, state *models.MemoryState) error {
	if state.Version == 0 {
		_, err := r.db.ExecContext(ctx, r.db.Rebind(`
			INSERT INTO memory_states (
				user_id, item_id, ease, interval_days, repetitions, lapses,
				due_at, last_reviewed_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`),
			state.UserID, state.ItemID, state.Ease, state.IntervalDays,
			state.Repetitions, state.Lapses, state.DueAt, state.LastReviewedAt,
		)
		if err != nil {
			if isConflict(err) {
				return srs.ErrConcurrentModification
			}
			return fmt.Errorf("%w: insert state: %v", srs.ErrStorageUnavailable, err)
		}
		state.Version = 1
		return nil
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE memory_states SET
			ease = ?,
			interval_days = ?,
			repetitions = ?,
			lapses = ?,
			due_at = ?,
			last_reviewed_at = ?,
			version = version + 1
		WHERE user_id = ? AND item_id = ? AND version = ?`),
		state.Ease, state.IntervalDays, state.Repetitions, state.Lapses,
		state.DueAt, state.LastReviewedAt,
		state.UserID, state.ItemID, state.Version,
	)
	if err != nil {
		return fmt.Errorf("%w: update state: %v", srs.ErrStorageUnavailable, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update state: %v", srs.ErrStorageUnavailable, err)
	}
	if rows == 0 {
		return srs.ErrConcurrentModification
	}
	state.Version++
	return nil
}

// isConflict reports whether err is a unique-constraint violation. Both
// drivers spell it differently; matching on the message avoids importing
// driver error types here.
func isConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}
