package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// document is the on-disk layout: one JSON object of key -> ordered ids,
// so several keys can share a file.
type document map[string][]string

// Store persists watchlists to a JSON file, written atomically via rename.
type Store struct {
	mu   sync.Mutex
	path string
	key  string
}

func NewStore(path, key string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{path: path, key: key}, nil
}

func (s *Store) LoadWatchlist(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return doc[s.key], nil
}

func (s *Store) SaveWatchlist(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc[s.key] = append([]string{}, ids...)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode watchlist: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write watchlist: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace watchlist: %w", err)
	}
	return nil
}

func (s *Store) read() (document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}

	doc := document{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode watchlist: %w", err)
	}
	return doc, nil
}

// IsHealthy reports whether the data directory is reachable.
func (s *Store) IsHealthy(ctx context.Context) bool {
	_, err := os.Stat(filepath.Dir(s.path))
	return err == nil
}

func (s *Store) Close() error { return nil }
