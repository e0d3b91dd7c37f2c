package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dyike/CortexTrader/models"
)

type paperPosition struct {
	qty decimal.Decimal
}

// PaperGateway simulates an account in memory. Market orders fill at once at
// the latest known price.
type PaperGateway struct {
	mu        sync.Mutex
	cash      decimal.Decimal
	positions map[string]*paperPosition
	prices    map[string]decimal.Decimal
	quotes    PriceSource
	orders    []models.OrderConfirmation
}

type PaperOption func(*PaperGateway)

// WithQuotes makes the simulation price fills from src when no price was
// set explicitly.
func WithQuotes(src PriceSource) PaperOption {
	return func(p *PaperGateway) {
		p.quotes = src
	}
}

func NewPaperGateway(cash decimal.Decimal, opts ...PaperOption) *PaperGateway {
	p := &PaperGateway{
		cash:      cash,
		positions: make(map[string]*paperPosition),
		prices:    make(map[string]decimal.Decimal),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PaperGateway) SetPrice(ticker string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[strings.ToUpper(ticker)] = price
}

func (p *PaperGateway) SetPosition(ticker string, qty decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions[strings.ToUpper(ticker)] = &paperPosition{qty: qty}
}

// Orders returns the confirmations issued so far.
func (p *PaperGateway) Orders() []models.OrderConfirmation {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.OrderConfirmation, len(p.orders))
	copy(out, p.orders)
	return out
}

func (p *PaperGateway) Cash(ctx context.Context) (models.AccountSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.AccountSnapshot{}, &ConnectivityError{Op: "get account", Err: err}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return models.AccountSnapshot{Cash: p.cash}, nil
}

func (p *PaperGateway) Position(ctx context.Context, ticker string) (models.PositionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.PositionSnapshot{}, &ConnectivityError{Op: "get position", Err: err}
	}
	price, _ := p.priceFor(ctx, ticker)

	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[strings.ToUpper(ticker)]
	if !ok || !pos.qty.IsPositive() {
		return models.PositionSnapshot{}, fmt.Errorf("%s: %w", ticker, ErrPositionNotFound)
	}
	return models.PositionSnapshot{
		Ticker:      strings.ToUpper(ticker),
		Quantity:    pos.qty,
		MarketValue: pos.qty.Mul(price),
	}, nil
}

func (p *PaperGateway) SubmitOrder(ctx context.Context, order models.OrderRequest) (models.OrderConfirmation, error) {
	if err := ctx.Err(); err != nil {
		return models.OrderConfirmation{}, &ConnectivityError{Op: "submit order", Err: err}
	}
	if err := order.Validate(); err != nil {
		return models.OrderConfirmation{}, &RejectedError{Ticker: order.Ticker, Message: err.Error()}
	}

	price, err := p.priceFor(ctx, order.Ticker)
	if err != nil {
		return models.OrderConfirmation{}, err
	}
	if !price.IsPositive() {
		return models.OrderConfirmation{}, &RejectedError{Ticker: order.Ticker, Message: "no market price available"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := strings.ToUpper(order.Ticker)
	qty := order.Qty
	cost := order.Qty.Mul(price)
	if order.IsNotional() {
		qty = order.Notional.DivRound(price, 9)
		cost = order.Notional
	}

	switch order.Side {
	case models.SideBuy:
		if cost.GreaterThan(p.cash) {
			return models.OrderConfirmation{}, &RejectedError{Ticker: order.Ticker, Message: "insufficient buying power"}
		}
		p.cash = p.cash.Sub(cost)
		pos, ok := p.positions[key]
		if !ok {
			pos = &paperPosition{}
			p.positions[key] = pos
		}
		pos.qty = pos.qty.Add(qty)
	case models.SideSell:
		pos, ok := p.positions[key]
		if !ok || pos.qty.LessThan(qty) {
			return models.OrderConfirmation{}, &RejectedError{Ticker: order.Ticker, Message: "insufficient qty available for order"}
		}
		pos.qty = pos.qty.Sub(qty)
		p.cash = p.cash.Add(cost)
	}

	clientID := order.ClientOrderID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	conf := models.OrderConfirmation{
		ID:            uuid.NewString(),
		ClientOrderID: clientID,
		Ticker:        key,
		Status:        "filled",
		FilledQty:     qty,
	}
	if order.IsNotional() {
		conf.Notional = decimal.NullDecimal{Decimal: order.Notional, Valid: true}
	} else {
		conf.Qty = decimal.NullDecimal{Decimal: order.Qty, Valid: true}
	}
	p.orders = append(p.orders, conf)
	return conf, nil
}

func (p *PaperGateway) LatestPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(tickers))
	var missing []string

	p.mu.Lock()
	for _, t := range tickers {
		if price, ok := p.prices[strings.ToUpper(t)]; ok {
			out[t] = price
		} else {
			missing = append(missing, t)
		}
	}
	quotes := p.quotes
	p.mu.Unlock()

	if len(missing) == 0 || quotes == nil {
		return out, nil
	}
	fetched, err := quotes.LatestPrices(ctx, missing)
	if err != nil {
		return nil, err
	}
	for t, price := range fetched {
		out[t] = price
	}
	return out, nil
}

func (p *PaperGateway) priceFor(ctx context.Context, ticker string) (decimal.Decimal, error) {
	prices, err := p.LatestPrices(ctx, []string{ticker})
	if err != nil {
		return decimal.Zero, err
	}
	return prices[ticker], nil
}
