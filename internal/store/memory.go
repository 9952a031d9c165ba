package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and keyless deployments.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string][]map[string]any),
	}
}

// Insert appends the record to the table.
func (s *MemoryStore) Insert(ctx context.Context, table string, record map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]any, len(record))
	for k, v := range record {
		copied[k] = v
	}
	s.tables[table] = append(s.tables[table], copied)
	return nil
}

// Select returns records matching all filters, in insertion order.
func (s *MemoryStore) Select(ctx context.Context, table string, filters map[string]string, limit int) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []map[string]any
	for _, rec := range s.tables[table] {
		if matches(rec, filters) {
			out = append(out, rec)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Delete removes records matching all filters.
func (s *MemoryStore) Delete(ctx context.Context, table string, filters map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []map[string]any
	for _, rec := range s.tables[table] {
		if !matches(rec, filters) {
			kept = append(kept, rec)
		}
	}
	s.tables[table] = kept
	return nil
}

func matches(rec map[string]any, filters map[string]string) bool {
	for col, want := range filters {
		got, ok := rec[col].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}
