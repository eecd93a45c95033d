package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/types"
	"github.com/google/uuid"
)

// MemoryStore is used when no database is configured. Sets are lost on
// restart.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string]QuestionSet
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string]QuestionSet), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, title string, categories []types.Category) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[id] = QuestionSet{
		ID:         id,
		Title:      title,
		Categories: types.CloneCategories(categories),
		CreatedAt:  m.now().UTC(),
	}
	return id, nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (QuestionSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.sets[id]
	if !ok {
		return QuestionSet{}, ErrNotFound
	}
	set.Categories = types.CloneCategories(set.Categories)
	return set, nil
}

func (m *MemoryStore) List(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Summary, 0, len(m.sets))
	for _, s := range m.sets {
		out = append(out, summarize(s.ID, s.Title, s.Categories, s.CreatedAt))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
