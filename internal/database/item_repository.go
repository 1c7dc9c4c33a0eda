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

// ItemRepository handles database operations for catalog items. It is the
// engine's read-only Catalog; writes come only from the import pipeline.
type ItemRepository struct {
	db *sqlx.DB
}

var _ srs.Catalog = (*ItemRepository)(nil)

// NewItemRepository creates a new repository instance
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Items returns the whole catalog ordered by frequency, most common first.
func (r *ItemRepository) Items(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := r.db.SelectContext(ctx, &items,
		"SELECT * FROM items ORDER BY frequency DESC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("%w: get items: %v", srs.ErrStorageUnavailable, err)
	}
	return items, nil
}

// Item returns the item with the given id, or (nil, nil) when absent.
func (r *ItemRepository) Item(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	err := r.db.GetContext(ctx, &item, r.db.Rebind("SELECT * FROM items WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get item: %v", srs.ErrStorageUnavailable, err)
	}
	return &item, nil
}

// GetByGermanAndLevel returns an item by its natural key, or nil when absent.
func (r *ItemRepository) GetByGermanAndLevel(ctx context.Context, german, level string) (*models.Item, error) {
	var item models.Item
	err := r.db.GetContext(ctx, &item,
		r.db.Rebind("SELECT * FROM items WHERE german = ? AND level = ?"), german, level)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item by phrase: %v", err)
	}
	return &item, nil
}

// Create inserts a new item and fills in its id.
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	if r.db.DriverName() == "postgres" {
		return r.db.QueryRowContext(ctx, `
			INSERT INTO items (german, english, example, frequency, level)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at`,
			item.German, item.English, item.Example, item.Frequency, item.Level,
		).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	}

	// SQLite has no RETURNING on this version, fetch the id separately
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO items (german, english, example, frequency, level)
		VALUES (?, ?, ?, ?, ?)`,
		item.German, item.English, item.Example, item.Frequency, item.Level,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %v", err)
	}
	item.ID = id
	return nil
}

// Update modifies an existing item in place.
func (r *ItemRepository) Update(ctx context.Context, item *models.Item) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE items SET
			english = ?,
			example = ?,
			frequency = ?,
			level = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`),
		item.English, item.Example, item.Frequency, item.Level, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %v", err)
	}
	return nil
}

// Count returns the catalog size.
func (r *ItemRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM items"); err != nil {
		return 0, fmt.Errorf("failed to count items: %v", err)
	}
	return n, nil
}
