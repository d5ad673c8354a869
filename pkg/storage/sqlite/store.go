package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Store keeps preferences in a SQLite key/value table. The watchlist is one
// row whose value is the JSON-encoded id list.
type Store struct {
	db  *sqlx.DB
	key string
}

type preferenceRow struct {
	Key       string `db:"key"`
	Value     string `db:"value"`
	UpdatedAt int64  `db:"updated_at"`
}

// NewStore opens (or creates) the database at path with WAL enabled.
func NewStore(path, key string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create preferences table: %w", err)
	}

	return &Store{db: db, key: key}, nil
}

func (s *Store) LoadWatchlist(ctx context.Context) ([]string, error) {
	var row preferenceRow
	err := s.db.GetContext(ctx, &row, "SELECT key, value, updated_at FROM preferences WHERE key = ?", s.key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(row.Value), &ids); err != nil {
		return nil, fmt.Errorf("decode watchlist: %w", err)
	}
	return ids, nil
}

func (s *Store) SaveWatchlist(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	value, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode watchlist: %w", err)
	}

	row := preferenceRow{Key: s.key, Value: string(value), UpdatedAt: time.Now().UnixMilli()}
	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES (:key, :value, :updated_at)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		row,
	)
	if err != nil {
		return fmt.Errorf("upsert watchlist: %w", err)
	}
	return nil
}

func (s *Store) IsHealthy(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
