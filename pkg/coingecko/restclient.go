package coingecko

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"coinwatch/internal/market"
)

type RESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithAPIKey sets the demo API key sent with every request.
func (c *RESTClient) WithAPIKey(key string) *RESTClient {
	c.apiKey = key
	return c
}

// MarketsURL returns the fixed markets query.
func (c *RESTClient) MarketsURL() string {
	q := url.Values{}
	q.Set("vs_currency", VsCurrency)
	q.Set("order", Order)
	q.Set("per_page", strconv.Itoa(PerPage))
	q.Set("page", strconv.Itoa(Page))
	q.Set("sparkline", strconv.FormatBool(Sparkline))
	q.Set("price_change_percentage", PriceChangePercentage)

	return c.baseURL + marketsPath + "?" + q.Encode()
}

// Fetch performs one GET against the markets endpoint and decodes the coin list.
// Any failure is returned as *FetchError; there is no retry.
func (c *RESTClient) Fetch(ctx context.Context) ([]market.Coin, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.MarketsURL(), nil)
	if err != nil {
		return nil, &FetchError{Cause: CauseTransport, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Cause: CauseTransport, Err: fmt.Errorf("making request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Cause: CauseTransport, Err: fmt.Errorf("reading body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Cause: CauseTransport, Err: fmt.Errorf("coingecko error: %s: %s", resp.Status, body)}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &FetchError{Cause: CauseEmptyBody, Err: errors.New("no data received")}
	}

	coins, err := ParseMarkets(body)
	if err != nil {
		return nil, &FetchError{Cause: CauseDecode, Err: err}
	}
	return coins, nil
}

// ParseMarkets decodes a /coins/markets response body.
// A null body, missing required fields and duplicate ids are decode errors.
func ParseMarkets(body []byte) ([]market.Coin, error) {
	var items []MarketItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	// a literal null decodes without error
	if items == nil {
		return nil, errors.New("decode response: expected array, got null")
	}

	out := make([]market.Coin, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		coin, err := it.toCoin()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if seen[coin.ID] {
			return nil, fmt.Errorf("item %d: duplicate id %q", i, coin.ID)
		}
		seen[coin.ID] = true
		out = append(out, coin)
	}
	return out, nil
}

func (it MarketItem) toCoin() (market.Coin, error) {
	switch {
	case it.ID == nil || *it.ID == "":
		return market.Coin{}, errors.New("missing id")
	case it.Symbol == nil:
		return market.Coin{}, fmt.Errorf("%s: missing symbol", *it.ID)
	case it.Name == nil:
		return market.Coin{}, fmt.Errorf("%s: missing name", *it.ID)
	case it.Image == nil:
		return market.Coin{}, fmt.Errorf("%s: missing image", *it.ID)
	case it.CurrentPrice == nil:
		return market.Coin{}, fmt.Errorf("%s: missing current_price", *it.ID)
	case it.LastUpdated == nil:
		return market.Coin{}, fmt.Errorf("%s: missing last_updated", *it.ID)
	}

	return market.Coin{
		ID:                    *it.ID,
		Symbol:                *it.Symbol,
		Name:                  *it.Name,
		ImageURL:              *it.Image,
		CurrentPrice:          *it.CurrentPrice,
		PriceChangePercent24h: it.PriceChangePercentage24h,
		LastUpdated:           *it.LastUpdated,
	}, nil
}
