package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"urlshortener.local/internal/app/shortlink"
	"urlshortener.local/internal/app/shortlink/stats"
)

// MemoryStore keeps records in process memory. Ids start at 1 and are never reused.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]shortlink.Record
	byURL  map[string]int64
	clicks []stats.ClickEvent
	now    func() time.Time
}

var (
	_ shortlink.Store = (*MemoryStore)(nil)
	_ stats.Sink      = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[int64]shortlink.Record),
		byURL: make(map[string]int64),
		now:   time.Now,
	}
}

func (m *MemoryStore) FindOrCreate(_ context.Context, url string) (shortlink.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byURL[url]; ok {
		return m.byID[id], false, nil
	}
	m.nextID++
	rec := shortlink.Record{
		ID:        m.nextID,
		URL:       url,
		CreatedAt: m.now().UTC(),
	}
	m.byID[rec.ID] = rec
	m.byURL[url] = rec.ID
	return rec, true, nil
}

func (m *MemoryStore) Get(_ context.Context, id int64) (shortlink.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byID[id]
	if !ok {
		return shortlink.Record{}, shortlink.ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return shortlink.ErrNotFound
	}
	delete(m.byID, id)
	delete(m.byURL, rec.URL)
	return nil
}

func (m *MemoryStore) List(_ context.Context, limit int, afterID int64) ([]shortlink.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.byID))
	for id := range m.byID {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit >= 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	result := make([]shortlink.Record, 0, len(ids))
	for _, id := range ids {
		result = append(result, m.byID[id])
	}
	return result, nil
}

func (m *MemoryStore) RecordClicks(_ context.Context, events []stats.ClickEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range events {
		rec, ok := m.byID[e.ID]
		if !ok {
			continue
		}
		rec.ClickCount++
		m.byID[e.ID] = rec
		m.clicks = append(m.clicks, e)
	}
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}
