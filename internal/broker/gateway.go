package broker

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexTrader/models"
)

// Gateway is the only component that talks to the brokerage. Every read
// goes to the broker; nothing is cached between calls.
type Gateway interface {
	Cash(ctx context.Context) (models.AccountSnapshot, error)
	Position(ctx context.Context, ticker string) (models.PositionSnapshot, error)
	SubmitOrder(ctx context.Context, order models.OrderRequest) (models.OrderConfirmation, error)
	PriceSource
}

// PriceSource returns the latest trade price per ticker. Tickers without a
// price are absent from the map.
type PriceSource interface {
	LatestPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}

type pricedGateway struct {
	Gateway
	prices PriceSource
}

// WithPriceSource routes LatestPrices to src and everything else to gw.
func WithPriceSource(gw Gateway, src PriceSource) Gateway {
	if src == nil {
		return gw
	}
	return &pricedGateway{Gateway: gw, prices: src}
}

func (g *pricedGateway) LatestPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	return g.prices.LatestPrices(ctx, tickers)
}
