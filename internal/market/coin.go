package market

// Coin is an immutable snapshot of one asset at fetch time.
type Coin struct {
	ID                    string   `json:"id"`     // stable unique identifier, e.g. "bitcoin"
	Symbol                string   `json:"symbol"` // ticker, e.g. "btc"
	Name                  string   `json:"name"`
	ImageURL              string   `json:"image"`
	CurrentPrice          float64  `json:"current_price"`
	PriceChangePercent24h *float64 `json:"price_change_percentage_24h"` // nil when unknown
	LastUpdated           string   `json:"last_updated"`                // opaque, display only
}

// IsPriceChangePositive reports whether the 24h change is non-negative.
// An unknown change counts as positive.
func (c Coin) IsPriceChangePositive() bool {
	return c.PriceChangePercent24h == nil || *c.PriceChangePercent24h >= 0
}

// IndexByID returns the position of the coin with the given id, or -1.
func IndexByID(coins []Coin, id string) int {
	for i, c := range coins {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// FindByID looks up a coin by id.
func FindByID(coins []Coin, id string) (Coin, bool) {
	if i := IndexByID(coins, id); i >= 0 {
		return coins[i], true
	}
	return Coin{}, false
}

// Float64 returns a pointer to v, for building optional fields.
func Float64(v float64) *float64 {
	return &v
}
