package cache

import (
	"context"
	"sync"
)

// MemoryRemote is a process-local Remote. Entries never expire; they live
// until process restart, matching the in-process-only deployment variant.
// Sets keep insertion order for deterministic reads.
type MemoryRemote struct {
	mu     sync.RWMutex
	values map[string]string
	sets   map[string][]string
}

func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{
		values: make(map[string]string),
		sets:   make(map[string][]string),
	}
}

func (m *MemoryRemote) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryRemote) MGet(_ context.Context, keys []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryRemote) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members := m.sets[key]
	out := make([]string, len(members))
	copy(out, members)
	return out, nil
}

func (m *MemoryRemote) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.values[key]; ok {
		return true, nil
	}
	_, ok := m.sets[key]
	return ok, nil
}

// Exec applies the whole batch under one lock, so readers observe either
// none or all of its writes.
func (m *MemoryRemote) Exec(_ context.Context, b *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range b.ops {
		switch op.kind {
		case "set":
			m.values[op.key] = op.value
		case "sadd":
			existing := m.sets[op.key]
			for _, member := range op.members {
				if !containsString(existing, member) {
					existing = append(existing, member)
				}
			}
			m.sets[op.key] = existing
		}
	}
	return nil
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
