package store

import (
	"context"
	"sync"

	"ragserver/types"
)

// MemoryLedger keeps the conversation in process memory. The mutex is
// held only for the id increment and the append itself, so no two
// callers ever receive the same id.
type MemoryLedger struct {
	mu      sync.RWMutex
	nextID  int64
	entries map[int64]types.ChatEntry
	order   []int64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		nextID:  1,
		entries: make(map[int64]types.ChatEntry),
	}
}

func (l *MemoryLedger) Append(ctx context.Context, text, role string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.entries[id] = types.ChatEntry{ID: id, Role: role, Text: text}
	l.order = append(l.order, id)
	return id, nil
}

func (l *MemoryLedger) Get(ctx context.Context, id int64) (*types.ChatEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.entries[id]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (l *MemoryLedger) ListAll(ctx context.Context) ([]types.ChatEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := make([]types.ChatEntry, 0, len(l.order))
	for _, id := range l.order {
		all = append(all, l.entries[id])
	}
	return all, nil
}

func (l *MemoryLedger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID = 1
	l.entries = make(map[int64]types.ChatEntry)
	l.order = nil
	return nil
}
