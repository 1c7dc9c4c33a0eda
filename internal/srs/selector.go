package srs

import (
	"math/rand"
	"sort"
	"time"

	"github.com/example/phrasebot/pkg/models"
)

// Selector picks the next batch of items to present. Given identical
// inputs and now it is deterministic: qualifying items are ordered by
// descending frequency with ascending id breaking ties, so the
// highest-value phrases are taught first.
type Selector struct {
	// RandomFallback, when set, returns one uniformly random unfinished
	// catalog item if nothing is due but quota remains. This deliberately
	// breaks due-date semantics so the user is never blocked from
	// practicing, which is why it is off by default.
	RandomFallback bool

	rng *rand.Rand
}

// NewSelector creates a Selector. rng may be nil unless RandomFallback is
// used with a deterministic test seed.
func NewSelector(randomFallback bool, rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{RandomFallback: randomFallback, rng: rng}
}

// Select returns the next items for review, at most
// min(limit, progress.Remaining()) of them. progress may be nil for a user
// with no activity today. An empty result with quota met means the day is
// done; it is not an error.
func (s *Selector) Select(items []models.Item, states map[int64]*models.MemoryState, progress *models.DailyProgress, limit int, now time.Time) []models.Item {
	quota := models.DefaultDailyTarget
	if progress != nil {
		if progress.Completed() {
			return nil
		}
		quota = progress.Remaining()
	}

	var due []models.Item
	var unfinished []models.Item
	for _, item := range items {
		if progress != nil && progress.Contains(item.ID) {
			continue
		}
		unfinished = append(unfinished, item)
		state, ok := states[item.ID]
		// A new item with no state yet is always due.
		if !ok || state == nil || !state.DueAt.After(now) {
			due = append(due, item)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].Frequency != due[j].Frequency {
			return due[i].Frequency > due[j].Frequency
		}
		return due[i].ID < due[j].ID
	})

	if len(due) == 0 {
		if s.RandomFallback && len(unfinished) > 0 {
			return []models.Item{unfinished[s.rng.Intn(len(unfinished))]}
		}
		return nil
	}

	n := len(due)
	if limit > 0 && limit < n {
		n = limit
	}
	if quota < n {
		n = quota
	}
	return due[:n]
}
