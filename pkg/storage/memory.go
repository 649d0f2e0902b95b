package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
)

// Memory is an in-process alert history store. History is lost on exit.
type Memory struct {
	mu      sync.RWMutex
	entries map[model.HistoryKey]model.AlertHistoryEntry
}

// NewMemory creates an empty in-memory history store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[model.HistoryKey]model.AlertHistoryEntry),
	}
}

func (m *Memory) GetAlertHistory(_ context.Context, key model.HistoryKey) (*model.AlertHistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) PutAlertHistory(_ context.Context, key model.HistoryKey, entry model.AlertHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry
	return nil
}

func (m *Memory) SwapAlertHistory(_ context.Context, key model.HistoryKey, old *model.AlertHistoryEntry, next model.AlertHistoryEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current *model.AlertHistoryEntry
	if e, ok := m.entries[key]; ok {
		current = &e
	}
	if !sameEntry(current, old) {
		return false, nil
	}
	m.entries[key] = next
	return true, nil
}

func (m *Memory) ListAlertHistory(_ context.Context) ([]model.AlertHistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.AlertHistoryRecord, 0, len(m.entries))
	for k, e := range m.entries {
		out = append(out, model.AlertHistoryRecord{Key: k, Entry: e})
	}
	slices.SortFunc(out, func(a, b model.AlertHistoryRecord) int {
		return cmp.Compare(a.Key.String(), b.Key.String())
	})
	return out, nil
}

func (m *Memory) ResetAlertHistory(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.entries)
	return nil
}

func (m *Memory) Close() error { return nil }
