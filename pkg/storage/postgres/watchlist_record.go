package postgres

import "time"

// WatchlistEntry is one watched coin id at a position within a named list.
type WatchlistEntry struct {
	ID uint `gorm:"primaryKey"`

	ListKey  string `gorm:"type:varchar(64);not null;index:idx_watchlist_key_position,unique;index:idx_watchlist_key_coin,unique"`
	Position int    `gorm:"not null;index:idx_watchlist_key_position,unique"`
	CoinID   string `gorm:"type:text;not null;index:idx_watchlist_key_coin,unique"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (WatchlistEntry) TableName() string {
	return "watchlist_entry"
}
