package srs

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/phrasebot/pkg/models"
)

// Config holds the deployment-level engine settings.
type Config struct {
	// Policy selects the scheduling policy for every user of this
	// deployment. Empty means PolicyClassical.
	Policy PolicyKind
	// DailyTarget is the default daily quota; zero means
	// models.DefaultDailyTarget.
	DailyTarget int
	// MaxIntervalDays caps classical interval growth; zero means
	// DefaultMaxInterval.
	MaxIntervalDays int
	// RandomFallback enables the due-selector's random-item relaxation.
	RandomFallback bool
}

// Review is one submitted review outcome.
type Review struct {
	UserID     int64
	ItemID     int64
	Rating     Rating
	ResponseMs int64
	// OccurredAt overrides the engine clock when non-zero.
	OccurredAt time.Time
}

// Engine ties the scheduler, due-selector and progress tracker together over
// injected stores. All entry points are safe for concurrent use; updates to
// one (user, item) pair are serialized.
type Engine struct {
	catalog  Catalog
	states   StateStore
	events   EventLog
	policy   Policy
	selector *Selector
	tracker  *Tracker
	clock    Clock
	levels   LevelSource // optional

	locks keyedMutex
}

// LevelSource resolves a user's preferred proficiency level for due
// selection. An empty level means no filter.
type LevelSource interface {
	PreferredLevel(ctx context.Context, userID int64) (string, error)
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	clock   Clock
	rng     *rand.Rand
	targets TargetSource
	levels  LevelSource
}

// WithClock injects the time source. Defaults to SystemClock.
func WithClock(c Clock) Option { return func(o *engineOptions) { o.clock = c } }

// WithRand injects the randomness source used by the selector fallback.
func WithRand(rng *rand.Rand) Option { return func(o *engineOptions) { o.rng = rng } }

// WithTargetSource installs a per-user daily-target lookup.
func WithTargetSource(ts TargetSource) Option { return func(o *engineOptions) { o.targets = ts } }

// WithLevelSource installs a per-user level filter for due selection.
func WithLevelSource(ls LevelSource) Option { return func(o *engineOptions) { o.levels = ls } }

// NewEngine builds an engine from config and stores.
func NewEngine(cfg Config, catalog Catalog, states StateStore, progress ProgressStore, events EventLog, opts ...Option) (*Engine, error) {
	policy, err := NewPolicy(cfg.Policy, cfg.MaxIntervalDays)
	if err != nil {
		return nil, err
	}

	o := engineOptions{clock: SystemClock()}
	for _, opt := range opts {
		opt(&o)
	}

	tracker := NewTracker(progress, events, o.clock, cfg.DailyTarget)
	if o.targets != nil {
		tracker.SetTargetSource(o.targets)
	}

	return &Engine{
		catalog:  catalog,
		states:   states,
		events:   events,
		policy:   policy,
		selector: NewSelector(cfg.RandomFallback, o.rng),
		tracker:  tracker,
		clock:    o.clock,
		levels:   o.levels,
	}, nil
}

// Policy returns the active scheduling policy.
func (e *Engine) Policy() Policy { return e.policy }

// SubmitReview validates and applies one review, persists the updated
// memory state, appends the audit event and credits the daily quota.
// It returns ErrInvalidRating or ErrUnknownItem without touching any state,
// and ErrConcurrentModification when the optimistic save lost a race — the
// caller retries the whole operation in that case.
func (e *Engine) SubmitReview(ctx context.Context, rev Review) (*models.MemoryState, error) {
	if err := e.policy.Scale().Validate(rev.Rating); err != nil {
		return nil, err
	}
	item, err := e.catalog.Item(ctx, rev.ItemID)
	if err != nil {
		return nil, fmt.Errorf("load item %d: %w", rev.ItemID, err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownItem, rev.ItemID)
	}

	now := rev.OccurredAt
	if now.IsZero() {
		now = e.clock.Now()
	}

	unlock := e.locks.lock(stateKey(rev.UserID, rev.ItemID))
	defer unlock()

	state, err := e.states.State(ctx, rev.UserID, rev.ItemID)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if state == nil {
		state = models.NewMemoryState(rev.UserID, rev.ItemID, now)
	}

	e.policy.Apply(state, rev.Rating, now)

	if err := e.states.SaveState(ctx, state); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	event := &models.ReviewEvent{
		ID:         uuid.NewString(),
		UserID:     rev.UserID,
		ItemID:     rev.ItemID,
		Rating:     int(rev.Rating),
		ResponseMs: rev.ResponseMs,
		ReviewedAt: now,
	}
	if err := e.events.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("append review event: %w", err)
	}

	if err := e.tracker.Record(ctx, rev.UserID, rev.ItemID, now, e.policy.QuotaCredit(rev.Rating)); err != nil {
		return nil, err
	}
	return state, nil
}

// DueItems returns the next batch of items for the user, at most limit of
// them. An empty result means the daily quota is met or nothing is due.
func (e *Engine) DueItems(ctx context.Context, userID int64, limit int) ([]models.Item, error) {
	now := e.clock.Now()

	progress, err := e.tracker.Today(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load daily progress: %w", err)
	}
	if progress == nil {
		progress = models.NewDailyProgress(userID, models.DayKey(now), e.tracker.targetFor(ctx, userID))
	}

	items, err := e.catalog.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	items, err = e.filterByLevel(ctx, userID, items)
	if err != nil {
		return nil, err
	}
	states, err := e.states.States(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load states: %w", err)
	}

	return e.selector.Select(items, states, progress, limit, now), nil
}

// filterByLevel narrows the catalog to the user's preferred level. Items
// without a level tag always qualify.
func (e *Engine) filterByLevel(ctx context.Context, userID int64, items []models.Item) ([]models.Item, error) {
	if e.levels == nil {
		return items, nil
	}
	level, err := e.levels.PreferredLevel(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user level: %w", err)
	}
	if level == "" {
		return items, nil
	}
	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		if item.Level == "" || item.Level == level {
			out = append(out, item)
		}
	}
	return out, nil
}

// Progress returns the user's progress snapshot.
func (e *Engine) Progress(ctx context.Context, userID int64) (Snapshot, error) {
	return e.tracker.Snapshot(ctx, userID, e.passRating())
}

// passRating is the lowest rating counted as a successful recall for
// accuracy purposes.
func (e *Engine) passRating() Rating {
	if e.policy.Kind() == PolicyFixed {
		return FixedMedium
	}
	return Good
}

func stateKey(userID, itemID int64) string {
	return fmt.Sprintf("%d/%d", userID, itemID)
}

// keyedMutex serializes read-modify-write cycles per (user, item) key.
// Entries are never evicted; the key space is bounded by users × catalog.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
