package srs

import (
	"context"

	"github.com/example/phrasebot/pkg/models"
)

// Catalog is the read-only ordered collection of reviewable items. The
// engine never mutates it; the import pipeline populates it.
type Catalog interface {
	// Items returns the whole catalog.
	Items(ctx context.Context) ([]models.Item, error)
	// Item returns the item with the given id, or (nil, nil) when absent.
	Item(ctx context.Context, id int64) (*models.Item, error)
}

// StateStore persists MemoryState keyed by (user, item).
type StateStore interface {
	// State returns the state for the pair, or (nil, nil) when it does not
	// exist yet.
	State(ctx context.Context, userID, itemID int64) (*models.MemoryState, error)
	// States returns all states for the user, keyed by item id.
	States(ctx context.Context, userID int64) (map[int64]*models.MemoryState, error)
	// SaveState persists the state. The write succeeds only when the stored
	// version still equals state.Version; on success the store bumps
	// state.Version, otherwise it returns ErrConcurrentModification.
	SaveState(ctx context.Context, state *models.MemoryState) error
}

// ProgressStore persists DailyProgress keyed by (user, calendar day).
type ProgressStore interface {
	// Progress returns the record for the day, or (nil, nil) when none exists.
	Progress(ctx context.Context, userID int64, day string) (*models.DailyProgress, error)
	// SaveProgress upserts the record for (progress.UserID, progress.Day).
	SaveProgress(ctx context.Context, progress *models.DailyProgress) error
	// ActiveDays returns up to limit day keys with at least one completed
	// item, most recent first.
	ActiveDays(ctx context.Context, userID int64, limit int) ([]string, error)
}

// EventLog is the append-only review audit trail.
type EventLog interface {
	Append(ctx context.Context, event *models.ReviewEvent) error
	// Counts returns the total number of events for the user and how many of
	// them carried a rating of at least pass.
	Counts(ctx context.Context, userID int64, pass Rating) (total, passed int, err error)
}
