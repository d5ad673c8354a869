package postgres

import (
	"context"
	"fmt"

	"coinwatch/config"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PostgresClient struct {
	DB  *gorm.DB
	key string
}

func NewClient(dsn, key string) (*PostgresClient, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PostgresClient{DB: db, key: key}, nil
}

// InitializeAndMigrate connects to Postgres, optionally creates the DB,
// applies pool limits and runs AutoMigrate for the watchlist table.
func InitializeAndMigrate(cfg config.PostgresConfig, env, key string, createDB bool) (*PostgresClient, error) {
	if createDB {
		if err := CreateDatabase(cfg); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	client, err := NewClient(cfg.DSN(env), key)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := client.configure(cfg, client.AutoMigrateWatchlist); err != nil {
		return nil, err
	}
	return client, nil
}

// configure applies pool limits and runs migrate. The pool is closed when
// migrate fails.
func (p *PostgresClient) configure(cfg config.PostgresConfig, migrate func() error) error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := migrate(); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (p *PostgresClient) AutoMigrateWatchlist() error {
	if err := p.DB.AutoMigrate(&WatchlistEntry{}); err != nil {
		return fmt.Errorf("auto-migrate watchlist table: %w", err)
	}
	return nil
}

func (p *PostgresClient) IsHealthy(ctx context.Context) bool {
	db, err := p.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (p *PostgresClient) Close() error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
