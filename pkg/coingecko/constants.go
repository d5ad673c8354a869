package coingecko

const (
	marketsPath = "/coins/markets"

	// Fixed query for the markets endpoint: top 20 by market cap in USD.
	VsCurrency            = "usd"
	Order                 = "market_cap_desc"
	PerPage               = 20
	Page                  = 1
	Sparkline             = false
	PriceChangePercentage = "24h"

	apiKeyHeader = "x-cg-demo-api-key"
)
