package redis

import (
	"context"
	"fmt"
	"time"

	"coinwatch/config"

	"github.com/redis/go-redis/v9"
)

// Store keeps the watchlist as a Redis list under prefix+key.
type Store struct {
	client *redis.Client
	key    string
}

func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// NewStore pings the server before returning so a bad address fails at startup.
func NewStore(ctx context.Context, client *redis.Client, prefix, key string) (*Store, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Store{client: client, key: prefix + key}, nil
}

func (s *Store) LoadWatchlist(ctx context.Context) ([]string, error) {
	ids, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read watchlist: %w", err)
	}
	return ids, nil
}

// SaveWatchlist replaces the list atomically with MULTI/EXEC.
func (s *Store) SaveWatchlist(ctx context.Context, ids []string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(ids) > 0 {
			values := make([]interface{}, len(ids))
			for i, id := range ids {
				values[i] = id
			}
			pipe.RPush(ctx, s.key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write watchlist: %w", err)
	}
	return nil
}

func (s *Store) IsHealthy(ctx context.Context) bool {
	return s.client.Ping(ctx).Err() == nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
