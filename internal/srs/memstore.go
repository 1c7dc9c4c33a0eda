package srs

import (
	"context"
	"sort"
	"sync"

	"github.com/example/phrasebot/pkg/models"
)

// MemStore is an in-memory implementation of Catalog, StateStore,
// ProgressStore and EventLog. Used in tests and in demo deployments that
// run without a database.
type MemStore struct {
	mu       sync.RWMutex
	items    []models.Item
	states   map[stateID]*models.MemoryState
	progress map[progressID]*models.DailyProgress
	events   []models.ReviewEvent
}

type stateID struct {
	userID int64
	itemID int64
}

type progressID struct {
	userID int64
	day    string
}

// Compile-time interface checks.
var (
	_ Catalog       = (*MemStore)(nil)
	_ StateStore    = (*MemStore)(nil)
	_ ProgressStore = (*MemStore)(nil)
	_ EventLog      = (*MemStore)(nil)
)

// NewMemStore creates an empty store seeded with the given catalog items.
func NewMemStore(items ...models.Item) *MemStore {
	return &MemStore{
		items:    items,
		states:   make(map[stateID]*models.MemoryState),
		progress: make(map[progressID]*models.DailyProgress),
	}
}

// AddItems appends items to the catalog.
func (m *MemStore) AddItems(items ...models.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, items...)
}

// Items implements Catalog.
func (m *MemStore) Items(ctx context.Context) ([]models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Item, len(m.items))
	copy(out, m.items)
	return out, nil
}

// Item implements Catalog.
func (m *MemStore) Item(ctx context.Context, id int64) (*models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, item := range m.items {
		if item.ID == id {
			it := item
			return &it, nil
		}
	}
	return nil, nil
}

// State implements StateStore.
func (m *MemStore) State(ctx context.Context, userID, itemID int64) (*models.MemoryState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[stateID{userID, itemID}]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

// States implements StateStore.
func (m *MemStore) States(ctx context.Context, userID int64) (map[int64]*models.MemoryState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]*models.MemoryState)
	for id, s := range m.states {
		if id.userID == userID {
			out[id.itemID] = s.Clone()
		}
	}
	return out, nil
}

// SaveState implements StateStore with a compare-and-swap on Version.
func (m *MemStore) SaveState(ctx context.Context, state *models.MemoryState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stateID{state.UserID, state.ItemID}
	current, exists := m.states[key]
	if exists && current.Version != state.Version {
		return ErrConcurrentModification
	}
	if !exists && state.Version != 0 {
		return ErrConcurrentModification
	}
	state.Version++
	m.states[key] = state.Clone()
	return nil
}

// Progress implements ProgressStore.
func (m *MemStore) Progress(ctx context.Context, userID int64, day string) (*models.DailyProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.progress[progressID{userID, day}]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.ItemIDs = append([]int64(nil), p.ItemIDs...)
	return &cp, nil
}

// SaveProgress implements ProgressStore.
func (m *MemStore) SaveProgress(ctx context.Context, progress *models.DailyProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *progress
	cp.ItemIDs = append([]int64(nil), progress.ItemIDs...)
	m.progress[progressID{progress.UserID, progress.Day}] = &cp
	return nil
}

// ActiveDays implements ProgressStore.
func (m *MemStore) ActiveDays(ctx context.Context, userID int64, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var days []string
	for id, p := range m.progress {
		if id.userID == userID && len(p.ItemIDs) > 0 {
			days = append(days, id.day)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	if limit > 0 && len(days) > limit {
		days = days[:limit]
	}
	return days, nil
}

// Append implements EventLog.
func (m *MemStore) Append(ctx context.Context, event *models.ReviewEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

// Counts implements EventLog.
func (m *MemStore) Counts(ctx context.Context, userID int64, pass Rating) (int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total, passed := 0, 0
	for _, e := range m.events {
		if e.UserID != userID {
			continue
		}
		total++
		if Rating(e.Rating) >= pass {
			passed++
		}
	}
	return total, passed, nil
}
