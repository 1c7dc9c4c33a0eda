package srs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/phrasebot/pkg/models"
)

func newEngineFixture(t *testing.T, cfg Config) (*Engine, *MemStore, *fakeClock) {
	t.Helper()
	store := NewMemStore(testCatalog(10)...)
	clock := &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	engine, err := NewEngine(cfg, store, store, store, store, WithClock(clock))
	require.NoError(t, err)
	return engine, store, clock
}

func TestSubmitReviewRejectsInvalidRating(t *testing.T) {
	engine, store, _ := newEngineFixture(t, Config{})
	ctx := context.Background()

	for _, rating := range []Rating{0, 5, -1} {
		_, err := engine.SubmitReview(ctx, Review{UserID: 1, ItemID: 1, Rating: rating})
		assert.True(t, errors.Is(err, ErrInvalidRating), "rating %d", rating)
	}

	state, err := store.State(ctx, 1, 1)
	require.NoError(t, err)
	assert.Nil(t, state, "rejected review must not create state")
}

func TestSubmitReviewRejectsUnknownItem(t *testing.T) {
	engine, _, _ := newEngineFixture(t, Config{})

	_, err := engine.SubmitReview(context.Background(), Review{UserID: 1, ItemID: 999, Rating: Good})
	assert.True(t, errors.Is(err, ErrUnknownItem))
}

func TestSubmitReviewCreatesStateLazily(t *testing.T) {
	engine, store, clock := newEngineFixture(t, Config{})
	ctx := context.Background()

	state, err := engine.SubmitReview(ctx, Review{UserID: 1, ItemID: 1, Rating: Good})
	require.NoError(t, err)

	assert.Equal(t, 1, state.IntervalDays)
	assert.Equal(t, 1, state.Repetitions)
	assert.Equal(t, models.DefaultEase, state.Ease)
	assert.Equal(t, clock.Now().AddDate(0, 0, 1), state.DueAt)
	assert.Equal(t, int64(1), state.Version)

	stored, err := store.State(ctx, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, state.IntervalDays, stored.IntervalDays)
}

func TestSubmitReviewAppendsAuditEvent(t *testing.T) {
	engine, store, _ := newEngineFixture(t, Config{})
	ctx := context.Background()

	_, err := engine.SubmitReview(ctx, Review{UserID: 1, ItemID: 2, Rating: Again, ResponseMs: 1800})
	require.NoError(t, err)

	total, passed, err := store.Counts(ctx, 1, Good)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 0, passed)
}

func TestSubmitReviewQuotaCredit(t *testing.T) {
	engine, store, clock := newEngineFixture(t, Config{DailyTarget: 5})
	ctx := context.Background()

	_, err := engine.SubmitReview(ctx, Review{UserID: 1, ItemID: 1, Rating: Good})
	require.NoError(t, err)
	_, err = engine.SubmitReview(ctx, Review{UserID: 1, ItemID: 2, Rating: Again})
	require.NoError(t, err)

	p, err := store.Progress(ctx, 1, models.DayKey(clock.Now()))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, []int64{1}, p.ItemIDs, "failure earns no quota credit")
}

func TestSubmitReviewHonorsOccurredAt(t *testing.T) {
	engine, _, clock := newEngineFixture(t, Config{})

	occurred := clock.Now().Add(-2 * time.Hour)
	state, err := engine.SubmitReview(context.Background(), Review{
		UserID: 1, ItemID: 1, Rating: Good, OccurredAt: occurred,
	})
	require.NoError(t, err)

	require.NotNil(t, state.LastReviewedAt)
	assert.Equal(t, occurred, *state.LastReviewedAt)
	assert.Equal(t, occurred.AddDate(0, 0, state.IntervalDays), state.DueAt)
}

func TestSubmitReviewBackdatedCreditsOccurredDay(t *testing.T) {
	engine, store, clock := newEngineFixture(t, Config{DailyTarget: 5})
	ctx := context.Background()

	yesterday := clock.Now().AddDate(0, 0, -1)
	_, err := engine.SubmitReview(ctx, Review{
		UserID: 1, ItemID: 1, Rating: Good, OccurredAt: yesterday,
	})
	require.NoError(t, err)

	p, err := store.Progress(ctx, 1, models.DayKey(yesterday))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, []int64{1}, p.ItemIDs)

	today, err := store.Progress(ctx, 1, models.DayKey(clock.Now()))
	require.NoError(t, err)
	assert.Nil(t, today, "a backdated review must not consume today's quota")
}

func TestSubmitReviewSerializesSamePair(t *testing.T) {
	engine, store, _ := newEngineFixture(t, Config{})
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := engine.SubmitReview(ctx, Review{UserID: 1, ItemID: 1, Rating: Good})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := store.State(ctx, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, n, state.Repetitions, "no update may be lost")
	assert.Equal(t, int64(n), state.Version)
}

func TestStateStoreDetectsConcurrentModification(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	fresh := models.NewMemoryState(1, 1, time.Now())
	require.NoError(t, store.SaveState(ctx, fresh))

	stale := fresh.Clone()
	stale.Version = 0 // lost the race
	err := store.SaveState(ctx, stale)
	assert.True(t, errors.Is(err, ErrConcurrentModification))
}

func TestDueItemsLifecycle(t *testing.T) {
	engine, _, clock := newEngineFixture(t, Config{DailyTarget: 5})
	ctx := context.Background()

	due, err := engine.DueItems(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, due, 5, "new user gets the five highest-frequency items")
	assert.Equal(t, int64(1), due[0].ID)

	// Complete the first item; it drops out for the rest of the day.
	_, err = engine.SubmitReview(ctx, Review{UserID: 1, ItemID: 1, Rating: Good})
	require.NoError(t, err)

	due, err = engine.DueItems(ctx, 1, 20)
	require.NoError(t, err)
	assert.NotContains(t, itemIDs(due), int64(1))

	// Meet the quota; selection reports completion with an empty batch.
	for _, id := range []int64{2, 3, 4, 5} {
		_, err = engine.SubmitReview(ctx, Review{UserID: 1, ItemID: id, Rating: Good})
		require.NoError(t, err)
	}
	due, err = engine.DueItems(ctx, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, due)

	// Next day the quota resets and yesterday's items are due again.
	clock.advanceDays(1)
	due, err = engine.DueItems(ctx, 1, 20)
	require.NoError(t, err)
	assert.Len(t, due, 5)
}

type staticLevels map[int64]string

func (s staticLevels) PreferredLevel(_ context.Context, userID int64) (string, error) {
	return s[userID], nil
}

func TestDueItemsFiltersByPreferredLevel(t *testing.T) {
	store := NewMemStore(
		models.Item{ID: 1, Frequency: 1000, Level: "A1"},
		models.Item{ID: 2, Frequency: 950, Level: "B2"},
		models.Item{ID: 3, Frequency: 900, Level: "A1"},
		models.Item{ID: 4, Frequency: 850},
	)
	clock := &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	engine, err := NewEngine(Config{DailyTarget: 5}, store, store, store, store,
		WithClock(clock), WithLevelSource(staticLevels{1: "A1"}))
	require.NoError(t, err)
	ctx := context.Background()

	due, err := engine.DueItems(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, itemIDs(due), "other levels drop out, untagged items stay")

	// A user without a preferred level sees the whole catalog.
	due, err = engine.DueItems(ctx, 2, 10)
	require.NoError(t, err)
	assert.Len(t, due, 4)
}

func TestEngineProgressSnapshot(t *testing.T) {
	engine, _, _ := newEngineFixture(t, Config{DailyTarget: 5})
	ctx := context.Background()

	for _, rev := range []Review{
		{UserID: 1, ItemID: 1, Rating: Good},
		{UserID: 1, ItemID: 2, Rating: Easy},
		{UserID: 1, ItemID: 3, Rating: Again},
	} {
		_, err := engine.SubmitReview(ctx, rev)
		require.NoError(t, err)
	}

	snap, err := engine.Progress(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.TodayCompleted)
	assert.Equal(t, 5, snap.TargetCount)
	assert.False(t, snap.Completed)
	assert.Equal(t, 1, snap.Streak)
	assert.Equal(t, 3, snap.TotalReviews)
	assert.Equal(t, 66, snap.Accuracy)
}

func TestFixedPolicyEngine(t *testing.T) {
	engine, store, clock := newEngineFixture(t, Config{Policy: PolicyFixed, DailyTarget: 5})
	ctx := context.Background()

	// Easy schedules a week out and earns quota credit.
	state, err := engine.SubmitReview(ctx, Review{UserID: 1, ItemID: 1, Rating: FixedEasy})
	require.NoError(t, err)
	assert.Equal(t, 7, state.IntervalDays)

	p, err := store.Progress(ctx, 1, models.DayKey(clock.Now()))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, []int64{1}, p.ItemIDs)

	// Hard schedules tomorrow and earns nothing.
	state, err = engine.SubmitReview(ctx, Review{UserID: 1, ItemID: 2, Rating: FixedHard})
	require.NoError(t, err)
	assert.Equal(t, 1, state.IntervalDays)

	p, err = store.Progress(ctx, 1, models.DayKey(clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, p.ItemIDs)

	// The four-level Easy is out of range on the three-level scale.
	_, err = engine.SubmitReview(ctx, Review{UserID: 1, ItemID: 3, Rating: 4})
	assert.True(t, errors.Is(err, ErrInvalidRating))
}
