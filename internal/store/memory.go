package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/lox/holdemtable/internal/game"
)

// MemorySnapshots keeps encoded snapshots in a map, so callers never share
// state with the store.
type MemorySnapshots struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{data: make(map[string][]byte)}
}

func (m *MemorySnapshots) Save(_ context.Context, s game.Snapshot) error {
	b, err := encodeSnapshot(s)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", s.TableID, err)
	}
	m.mu.Lock()
	m.data[s.TableID] = b
	m.mu.Unlock()
	return nil
}

func (m *MemorySnapshots) Load(_ context.Context, tableID string) (game.Snapshot, error) {
	m.mu.RLock()
	b, ok := m.data[tableID]
	m.mu.RUnlock()
	if !ok {
		return game.Snapshot{}, ErrNotFound
	}
	return decodeSnapshot(b)
}

func (m *MemorySnapshots) Delete(_ context.Context, tableID string) error {
	m.mu.Lock()
	delete(m.data, tableID)
	m.mu.Unlock()
	return nil
}

func (m *MemorySnapshots) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *MemorySnapshots) Close() error { return nil }

// MemoryHistory keeps action records per table in append order.
type MemoryHistory struct {
	mu      sync.RWMutex
	records map[string][]game.ActionRecord
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{records: make(map[string][]game.ActionRecord)}
}

func (m *MemoryHistory) Append(_ context.Context, records ...game.ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[r.TableID] = append(m.records[r.TableID], r)
	}
	return nil
}

func (m *MemoryHistory) Hand(_ context.Context, tableID string, handNumber int) ([]game.ActionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []game.ActionRecord
	for _, r := range m.records[tableID] {
		if r.HandNumber == handNumber {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryHistory) Close() error { return nil }
