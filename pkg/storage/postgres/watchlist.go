package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// LoadWatchlist returns the stored ids in their saved order.
func (p *PostgresClient) LoadWatchlist(ctx context.Context) ([]string, error) {
	var entries []WatchlistEntry
	err := p.DB.WithContext(ctx).
		Where("list_key = ?", p.key).
		Order("position ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.CoinID)
	}
	return ids, nil
}

// SaveWatchlist replaces the stored list in one transaction.
func (p *PostgresClient) SaveWatchlist(ctx context.Context, ids []string) error {
	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("list_key = ?", p.key).Delete(&WatchlistEntry{}).Error; err != nil {
			return fmt.Errorf("clear watchlist: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		entries := make([]WatchlistEntry, 0, len(ids))
		for i, id := range ids {
			entries = append(entries, WatchlistEntry{ListKey: p.key, Position: i, CoinID: id})
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("insert watchlist: %w", err)
		}
		return nil
	})
}
