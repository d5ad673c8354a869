package coingecko

import (
	"errors"
	"fmt"
)

// MarketItem is one element of the /coins/markets response array.
// Required fields are pointers so a missing or null value is detectable.
type MarketItem struct {
	ID                       *string  `json:"id"`
	Symbol                   *string  `json:"symbol"`
	Name                     *string  `json:"name"`
	Image                    *string  `json:"image"`
	CurrentPrice             *float64 `json:"current_price"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"` // nullable
	LastUpdated              *string  `json:"last_updated"`
}

// ErrFetchFailed matches every error returned by RESTClient.Fetch.
var ErrFetchFailed = errors.New("data fetch failed")

// Cause distinguishes why a fetch failed. It is kept for logging only.
type Cause string

const (
	CauseTransport Cause = "transport"
	CauseEmptyBody Cause = "empty_body"
	CauseDecode    Cause = "decode"
)

// FetchError is the single error kind reported by RESTClient.Fetch.
type FetchError struct {
	Cause Cause
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s (%s): %v", ErrFetchFailed, e.Cause, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }
