package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/phrasebot/internal/srs"
	"github.com/example/phrasebot/pkg/models"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, initializeSchema(db))
	return db
}

func TestItemRepositoryRoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewItemRepository(db)
	ctx := context.Background()

	item := &models.Item{German: "Guten Tag", English: "Good day", Frequency: 1000, Level: "A1"}
	require.NoError(t, repo.Create(ctx, item))
	require.NotZero(t, item.ID)

	got, err := repo.Item(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Guten Tag", got.German)
	assert.Equal(t, 1000, got.Frequency)

	missing, err := repo.Item(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestItemRepositoryOrdersByFrequency(t *testing.T) {
	db := testDB(t)
	repo := NewItemRepository(db)
	ctx := context.Background()

	for _, it := range []models.Item{
		{German: "selten", English: "rarely", Frequency: 100},
		{German: "oft", English: "often", Frequency: 900},
		{German: "manchmal", English: "sometimes", Frequency: 500},
	} {
		item := it
		require.NoError(t, repo.Create(ctx, &item))
	}

	items, err := repo.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "oft", items[0].German)
	assert.Equal(t, "manchmal", items[1].German)
	assert.Equal(t, "selten", items[2].German)
}

func TestStateRepositoryOptimisticSave(t *testing.T) {
	db := testDB(t)
	repo := NewStateRepository(db)
	ctx := context.Background()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	state := models.NewMemoryState(1, 1, now)
	state.IntervalDays = 1
	require.NoError(t, repo.SaveState(ctx, state))
	assert.Equal(t, int64(1), state.Version)

	loaded, err := repo.State(ctx, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(1), loaded.Version)

	// A writer holding the current version wins.
	loaded.IntervalDays = 6
	require.NoError(t, repo.SaveState(ctx, loaded))
	assert.Equal(t, int64(2), loaded.Version)

	// A writer holding a stale version loses.
	stale := state.Clone()
	stale.Version = 1
	err = repo.SaveState(ctx, stale)
	assert.True(t, errors.Is(err, srs.ErrConcurrentModification))

	// A duplicate insert for the same pair also loses.
	dup := models.NewMemoryState(1, 1, now)
	err = repo.SaveState(ctx, dup)
	assert.True(t, errors.Is(err, srs.ErrConcurrentModification))
}

func TestStateRepositoryStatesByUser(t *testing.T) {
	db := testDB(t)
	repo := NewStateRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	for _, itemID := range []int64{1, 2, 3} {
		require.NoError(t, repo.SaveState(ctx, models.NewMemoryState(1, itemID, now)))
	}
	require.NoError(t, repo.SaveState(ctx, models.NewMemoryState(2, 1, now)))

	states, err := repo.States(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, states, 3)

	none, err := repo.State(ctx, 3, 1)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestProgressRepositoryRoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	p := models.NewDailyProgress(1, "2025-03-10", 5)
	p.ItemIDs = []int64{3, 1}
	require.NoError(t, repo.SaveProgress(ctx, p))

	// Saving again with an extra item must not duplicate the old ones.
	p.ItemIDs = append(p.ItemIDs, 2)
	require.NoError(t, repo.SaveProgress(ctx, p))

	got, err := repo.Progress(ctx, 1, "2025-03-10")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.TargetCount)
	assert.ElementsMatch(t, []int64{1, 2, 3}, got.ItemIDs)

	missing, err := repo.Progress(ctx, 1, "2025-03-11")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProgressRepositoryActiveDays(t *testing.T) {
	db := testDB(t)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	for _, day := range []string{"2025-03-08", "2025-03-10", "2025-03-09"} {
		p := models.NewDailyProgress(1, day, 5)
		p.ItemIDs = []int64{1}
		require.NoError(t, repo.SaveProgress(ctx, p))
	}

	days, err := repo.ActiveDays(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-10", "2025-03-09", "2025-03-08"}, days)
}

func TestEventRepositoryCounts(t *testing.T) {
	db := testDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	ratings := []int{3, 4, 1, 3}
	for i, rating := range ratings {
		require.NoError(t, repo.Append(ctx, &models.ReviewEvent{
			ID:         string(rune('a' + i)),
			UserID:     1,
			ItemID:     int64(i + 1),
			Rating:     rating,
			ReviewedAt: now,
		}))
	}

	total, passed, err := repo.Counts(ctx, 1, srs.Good)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, 3, passed)

	total, _, err = repo.Counts(ctx, 2, srs.Good)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUserRepositoryUpsert(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{ID: 42, Username: "anna", FirstName: "Anna", NotificationEnabled: true, NotificationHour: 9}
	require.NoError(t, repo.Create(ctx, user))
	assert.Equal(t, models.DefaultDailyTarget, user.DailyTarget)

	// A second /start only refreshes profile fields.
	again := &models.User{ID: 42, Username: "anna_b", FirstName: "Anna", DailyTarget: 99}
	require.NoError(t, repo.Create(ctx, again))

	got, err := repo.GetByID(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "anna_b", got.Username)
	assert.Equal(t, models.DefaultDailyTarget, got.DailyTarget, "settings survive re-registration")

	target, err := repo.DailyTarget(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDailyTarget, target)

	target, err = repo.DailyTarget(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, target)
}

func TestUserRepositoryPreferredLevel(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{ID: 42, FirstName: "Anna"}
	require.NoError(t, repo.Create(ctx, user))

	level, err := repo.PreferredLevel(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, level, "no preference means no filter")

	user.Level = "B1"
	require.NoError(t, repo.Update(ctx, user))

	level, err = repo.PreferredLevel(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "B1", level)

	level, err = repo.PreferredLevel(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, level)
}

func TestUserRepositoryNotificationQuery(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{ID: 1, NotificationEnabled: true, NotificationHour: 9}))
	require.NoError(t, repo.Create(ctx, &models.User{ID: 2, NotificationEnabled: true, NotificationHour: 18}))
	require.NoError(t, repo.Create(ctx, &models.User{ID: 3, NotificationEnabled: false, NotificationHour: 9}))

	users, err := repo.GetUsersForNotification(ctx, 9)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(1), users[0].ID)
}
