package srs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/phrasebot/pkg/models"
)

// Snapshot summarizes a user's progress for client display. All fields are
// derived from the review and daily-progress history, never stored.
type Snapshot struct {
	TodayCompleted int  `json:"today_completed"`
	TargetCount    int  `json:"target_count"`
	Completed      bool `json:"completed"`
	Streak         int  `json:"streak"`   // Consecutive active days
	Accuracy       int  `json:"accuracy"` // Percent of passing reviews, 0-100
	TotalReviews   int  `json:"total_reviews"`
}

// TargetSource resolves a per-user daily target. Implemented by the user
// store; a zero return falls back to the deployment default.
type TargetSource interface {
	DailyTarget(ctx context.Context, userID int64) (int, error)
}

// Tracker maintains per-user DailyProgress and derives streak and accuracy
// aggregates. Mutations are serialized per user; reviewing the same item
// twice in one day never double-counts toward the quota.
type Tracker struct {
	progress ProgressStore
	events   EventLog
	clock    Clock
	target   int
	targets  TargetSource // optional

	mu    sync.Mutex
	users map[int64]*sync.Mutex
}

// NewTracker creates a Tracker. target <= 0 selects models.DefaultDailyTarget.
func NewTracker(progress ProgressStore, events EventLog, clock Clock, target int) *Tracker {
	if target <= 0 {
		target = models.DefaultDailyTarget
	}
	return &Tracker{
		progress: progress,
		events:   events,
		clock:    clock,
		target:   target,
		users:    make(map[int64]*sync.Mutex),
	}
}

// SetTargetSource installs a per-user target override lookup.
func (t *Tracker) SetTargetSource(ts TargetSource) { t.targets = ts }

// targetFor resolves the daily target for userID.
func (t *Tracker) targetFor(ctx context.Context, userID int64) int {
	if t.targets != nil {
		if n, err := t.targets.DailyTarget(ctx, userID); err == nil && n > 0 {
			return n
		}
	}
	return t.target
}

func (t *Tracker) userLock(userID int64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.users[userID]
	if !ok {
		l = &sync.Mutex{}
		t.users[userID] = l
	}
	return l
}

// Record notes a review of itemID that happened at the given time. credit
// controls whether the item counts toward the quota of that day; the
// completed set never grows past the target.
func (t *Tracker) Record(ctx context.Context, userID, itemID int64, at time.Time, credit bool) error {
	if !credit {
		return nil
	}

	l := t.userLock(userID)
	l.Lock()
	defer l.Unlock()

	day := models.DayKey(at)

	p, err := t.progress.Progress(ctx, userID, day)
	if err != nil {
		return fmt.Errorf("load daily progress: %w", err)
	}
	if p == nil {
		p = models.NewDailyProgress(userID, day, t.targetFor(ctx, userID))
	}
	if p.Contains(itemID) || p.Completed() {
		return nil
	}
	p.ItemIDs = append(p.ItemIDs, itemID)
	p.UpdatedAt = at

	if err := t.progress.SaveProgress(ctx, p); err != nil {
		return fmt.Errorf("save daily progress: %w", err)
	}
	return nil
}

// Today returns the user's progress record for the current day, or nil when
// no qualifying review happened yet.
func (t *Tracker) Today(ctx context.Context, userID int64) (*models.DailyProgress, error) {
	return t.progress.Progress(ctx, userID, models.DayKey(t.clock.Now()))
}

// Snapshot derives the user's progress summary. pass is the lowest rating
// that counts as a successful recall for accuracy purposes.
func (t *Tracker) Snapshot(ctx context.Context, userID int64, pass Rating) (Snapshot, error) {
	now := t.clock.Now()

	snap := Snapshot{TargetCount: t.targetFor(ctx, userID)}

	today, err := t.progress.Progress(ctx, userID, models.DayKey(now))
	if err != nil {
		return Snapshot{}, fmt.Errorf("load daily progress: %w", err)
	}
	if today != nil {
		snap.TodayCompleted = len(today.ItemIDs)
		snap.TargetCount = today.TargetCount
		snap.Completed = today.Completed()
	}

	days, err := t.progress.ActiveDays(ctx, userID, 366)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load active days: %w", err)
	}
	snap.Streak = streak(days, now)

	total, passed, err := t.events.Counts(ctx, userID, pass)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count reviews: %w", err)
	}
	snap.TotalReviews = total
	if total > 0 {
		pct := passed * 100 / total
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		snap.Accuracy = pct
	}
	return snap, nil
}

// streak counts consecutive active days ending today, or ending yesterday
// when today has no activity yet. A fully missed day resets the run.
func streak(days []string, now time.Time) int {
	active := make(map[string]bool, len(days))
	for _, d := range days {
		active[d] = true
	}

	cursor := now
	if !active[models.DayKey(cursor)] {
		cursor = cursor.AddDate(0, 0, -1)
		if !active[models.DayKey(cursor)] {
			return 0
		}
	}

	n := 0
	for active[models.DayKey(cursor)] {
		n++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return n
}
