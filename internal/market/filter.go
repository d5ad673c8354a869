package market

import (
	"fmt"
	"sort"
	"strings"
)

// SortKey selects the ordering of a coin list.
type SortKey string

const (
	SortByRank   SortKey = "rank" // upstream order, market cap descending
	SortByPrice  SortKey = "price"
	SortByChange SortKey = "change"
	SortByName   SortKey = "name"
)

// ParseSortKey parses a sort key; an empty string means SortByRank.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(s)); k {
	case "":
		return SortByRank, nil
	case SortByRank, SortByPrice, SortByChange, SortByName:
		return k, nil
	default:
		return "", fmt.Errorf("invalid sort key: %s", s)
	}
}

// Search returns the coins whose name or symbol contains query,
// ignoring case. An empty query returns all coins.
func Search(coins []Coin, query string) []Coin {
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]Coin, 0, len(coins))
	for _, c := range coins {
		if query == "" ||
			strings.Contains(strings.ToLower(c.Name), query) ||
			strings.Contains(strings.ToLower(c.Symbol), query) {
			out = append(out, c)
		}
	}
	return out
}

// Sorted returns a sorted copy of coins. Ties keep upstream order and
// coins with an unknown 24h change always sort last by change.
func Sorted(coins []Coin, key SortKey, desc bool) []Coin {
	out := make([]Coin, len(coins))
	copy(out, coins)

	if key == SortByRank {
		if desc {
			for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
				out[i], out[j] = out[j], out[i]
			}
		}
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch key {
		case SortByPrice:
			if desc {
				return a.CurrentPrice > b.CurrentPrice
			}
			return a.CurrentPrice < b.CurrentPrice
		case SortByChange:
			if a.PriceChangePercent24h == nil || b.PriceChangePercent24h == nil {
				return a.PriceChangePercent24h != nil && b.PriceChangePercent24h == nil
			}
			if desc {
				return *a.PriceChangePercent24h > *b.PriceChangePercent24h
			}
			return *a.PriceChangePercent24h < *b.PriceChangePercent24h
		case SortByName:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if desc {
				return an > bn
			}
			return an < bn
		}
		return false
	})
	return out
}
