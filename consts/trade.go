package consts

import "time"

// Defaults used when neither the environment nor the command line set a value.
const (
	DefaultTicker       = "NU"
	DefaultBuyFraction  = 0.10
	DefaultSellFraction = 1.0
	DefaultPaperCash    = 100000.0

	DefaultAlpacaBaseURL = "https://paper-api.alpaca.markets"
	DefaultAlpacaDataURL = "https://data.alpaca.markets"

	DateLayout = "2006-01-02"

	PriceCacheTTL = 30 * time.Second
)

// Broker kinds.
const (
	BrokerAlpaca = "alpaca"
	BrokerPaper  = "paper"
)

// Price sources for LatestPrices.
const (
	PriceSourceBroker   = "broker"
	PriceSourceYahoo    = "yahoo"
	PriceSourceLongport = "longport"
)

// Sizing modes.
const (
	SizingNotional = "notional"
	SizingShares   = "shares"
)
