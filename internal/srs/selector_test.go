package srs

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/phrasebot/pkg/models"
)

// testCatalog builds n items with frequencies 1000, 950, 900, ...
func testCatalog(n int) []models.Item {
	items := make([]models.Item, n)
	for i := 0; i < n; i++ {
		items[i] = models.Item{
			ID:        int64(i + 1),
			German:    "Phrase",
			English:   "Phrase",
			Frequency: 1000 - i*50,
		}
	}
	return items
}

func TestSelectNewUserTakesHighestFrequencyFirst(t *testing.T) {
	sel := NewSelector(false, nil)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	items := testCatalog(10)
	progress := models.NewDailyProgress(1, models.DayKey(now), 5)

	got := sel.Select(items, nil, progress, 20, now)

	require.Len(t, got, 5, "quota of 5 caps the batch")
	for i, item := range got {
		assert.Equal(t, int64(i+1), item.ID)
		assert.Equal(t, 1000-i*50, item.Frequency)
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	sel := NewSelector(false, nil)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	items := testCatalog(8)
	states := map[int64]*models.MemoryState{
		3: dueState(1, 3, now.Add(-time.Hour)),
		5: dueState(1, 5, now.Add(48*time.Hour)),
	}
	progress := models.NewDailyProgress(1, models.DayKey(now), 5)

	first := sel.Select(items, states, progress, 10, now)
	second := sel.Select(items, states, progress, 10, now)

	assert.Equal(t, first, second, "select is idempotent without intervening reviews")
}

func TestSelectFrequencyTieBreaksOnID(t *testing.T) {
	sel := NewSelector(false, nil)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	items := []models.Item{
		{ID: 9, Frequency: 500},
		{ID: 2, Frequency: 500},
		{ID: 4, Frequency: 500},
	}

	got := sel.Select(items, nil, nil, 10, now)

	require.Len(t, got, 3)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(4), got[1].ID)
	assert.Equal(t, int64(9), got[2].ID)
}

func TestSelectSkipsItemsNotYetDue(t *testing.T) {
	sel := NewSelector(false, nil)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	items := testCatalog(3)
	states := map[int64]*models.MemoryState{
		1: dueState(1, 1, now.AddDate(0, 0, 3)), // not due
		2: dueState(1, 2, now),                  // due exactly now
	}

	got := sel.Select(items, states, nil, 10, now)

	ids := itemIDs(got)
	assert.NotContains(t, ids, int64(1))
	assert.Contains(t, ids, int64(2), "due_at == now qualifies")
	assert.Contains(t, ids, int64(3), "item without state is always due")
}

func TestSelectExcludesTodaysCompleted(t *testing.T) {
	sel := NewSelector(false, nil)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	items := testCatalog(4)
	progress := models.NewDailyProgress(1, models.DayKey(now), 5)
	progress.ItemIDs = []int64{1, 3}

	got := sel.Select(items, nil, progress, 10, now)

	ids := itemIDs(got)
	assert.NotContains(t, ids, int64(1))
	assert.NotContains(t, ids, int64(3))
	assert.Len(t, got, 2)
}

func TestSelectReturnsNothingWhenQuotaMet(t *testing.T) {
	sel := NewSelector(false, nil)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	progress := models.NewDailyProgress(1, models.DayKey(now), 2)
	progress.ItemIDs = []int64{100, 101}

	got := sel.Select(testCatalog(5), nil, progress, 10, now)

	assert.Empty(t, got, "a met quota means done, not an error")
}

func TestSelectHonorsLimit(t *testing.T) {
	sel := NewSelector(false, nil)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	got := sel.Select(testCatalog(10), nil, models.NewDailyProgress(1, models.DayKey(now), 8), 3, now)

	assert.Len(t, got, 3)
}

func TestSelectRandomFallback(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	items := testCatalog(4)

	// Every item reviewed and scheduled in the future: nothing is due.
	states := make(map[int64]*models.MemoryState)
	for _, item := range items {
		states[item.ID] = dueState(1, item.ID, now.AddDate(0, 0, 5))
	}

	strict := NewSelector(false, nil)
	assert.Empty(t, strict.Select(items, states, nil, 10, now))

	relaxed := NewSelector(true, rand.New(rand.NewSource(1)))
	got := relaxed.Select(items, states, nil, 10, now)
	require.Len(t, got, 1, "fallback serves one random item so practice is never blocked")
}

func dueState(userID, itemID int64, due time.Time) *models.MemoryState {
	s := models.NewMemoryState(userID, itemID, due)
	s.DueAt = due
	return s
}

func itemIDs(items []models.Item) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}
