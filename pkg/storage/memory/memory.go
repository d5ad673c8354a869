package memory

import (
	"context"
	"sync"
)

// Store keeps watchlists in process memory. Used for tests and the
// "memory" backend, where favorites do not survive a restart.
type Store struct {
	mu    sync.Mutex
	key   string
	lists map[string][]string
	saves int
}

func NewStore(key string) *Store {
	return &Store{
		key:   key,
		lists: make(map[string][]string),
	}
}

// Seed sets the stored list as if written by a previous session.
func (m *Store) Seed(ids ...string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[m.key] = append([]string(nil), ids...)
	return m
}

func (m *Store) LoadWatchlist(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Copy to avoid race
	ids := m.lists[m.key]
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

func (m *Store) SaveWatchlist(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[m.key] = append([]string(nil), ids...)
	m.saves++
	return nil
}

// Saves reports how many times SaveWatchlist was called.
func (m *Store) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Store) IsHealthy(ctx context.Context) bool { return true }

func (m *Store) Close() error { return nil }
