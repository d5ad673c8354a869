package feed

import (
	"time"

	"coinwatch/internal/market"
	"coinwatch/internal/watchlist"
)

const TypeState = "state"

// CoinView is a coin as rendered to clients, with display strings.
type CoinView struct {
	ID                    string   `json:"id"`
	Symbol                string   `json:"symbol"`
	Name                  string   `json:"name"`
	Image                 string   `json:"image"`
	CurrentPrice          float64  `json:"current_price"`
	PriceChangePercent24h *float64 `json:"price_change_percentage_24h"`
	LastUpdated           string   `json:"last_updated"`

	FormattedPrice        string `json:"formatted_price"`
	FormattedPriceChange  string `json:"formatted_price_change"`
	IsPriceChangePositive bool   `json:"is_price_change_positive"`
	Watched               bool   `json:"watched"`
}

// StateMessage is pushed over the websocket on connect and after every change.
type StateMessage struct {
	Type         string     `json:"type"` // always "state"
	Ts           int64      `json:"ts"`   // server time in milliseconds since epoch
	AllCoins     []CoinView `json:"all_coins"`
	WatchedCoins []CoinView `json:"watched_coins"`
	WatchedIDs   []string   `json:"watched_ids"`
	IsLoading    bool       `json:"is_loading"`
	LastError    string     `json:"last_error,omitempty"`
}

func NewCoinView(c market.Coin, watched bool) CoinView {
	return CoinView{
		ID:                    c.ID,
		Symbol:                c.Symbol,
		Name:                  c.Name,
		Image:                 c.ImageURL,
		CurrentPrice:          c.CurrentPrice,
		PriceChangePercent24h: c.PriceChangePercent24h,
		LastUpdated:           c.LastUpdated,
		FormattedPrice:        c.FormattedPrice(),
		FormattedPriceChange:  c.FormattedPriceChange(),
		IsPriceChangePositive: c.IsPriceChangePositive(),
		Watched:               watched,
	}
}

// NewCoinViews renders coins, marking the ones whose id is in watched.
func NewCoinViews(coins []market.Coin, watched []string) []CoinView {
	set := make(map[string]bool, len(watched))
	for _, id := range watched {
		set[id] = true
	}

	out := make([]CoinView, len(coins))
	for i, c := range coins {
		out[i] = NewCoinView(c, set[c.ID])
	}
	return out
}

func NewStateMessage(s watchlist.State, now time.Time) StateMessage {
	ids := s.WatchedIDs
	if ids == nil {
		ids = []string{}
	}
	return StateMessage{
		Type:         TypeState,
		Ts:           now.UnixMilli(),
		AllCoins:     NewCoinViews(s.AllCoins, s.WatchedIDs),
		WatchedCoins: NewCoinViews(s.WatchedCoins, s.WatchedIDs),
		WatchedIDs:   ids,
		IsLoading:    s.IsLoading,
		LastError:    s.LastError,
	}
}
