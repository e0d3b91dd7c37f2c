package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderType is the execution style of an order. Only market orders are sent.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
)

// TimeInForce controls how long an order stays working at the broker.
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceIOC TimeInForce = "ioc"
)

// OrderRequest is built by the sizing policy and consumed once by a gateway.
// Exactly one of Qty and Notional is set.
type OrderRequest struct {
	Ticker        string          `json:"symbol"`
	Side          OrderSide       `json:"side"`
	Type          OrderType       `json:"type"`
	TimeInForce   TimeInForce     `json:"time_in_force"`
	Qty           decimal.Decimal `json:"qty"`
	Notional      decimal.Decimal `json:"notional"`
	ClientOrderID string          `json:"client_order_id,omitempty"`
}

var (
	ErrOrderSizeMissing   = errors.New("order has neither qty nor notional")
	ErrOrderSizeAmbiguous = errors.New("order has both qty and notional")
)

// NewNotionalOrder returns a DAY market order sized by dollar amount.
func NewNotionalOrder(ticker string, side OrderSide, notional decimal.Decimal) OrderRequest {
	return OrderRequest{
		Ticker:      ticker,
		Side:        side,
		Type:        OrderTypeMarket,
		TimeInForce: TimeInForceDay,
		Notional:    notional,
	}
}

// NewQtyOrder returns a DAY market order sized by share quantity.
func NewQtyOrder(ticker string, side OrderSide, qty decimal.Decimal) OrderRequest {
	return OrderRequest{
		Ticker:      ticker,
		Side:        side,
		Type:        OrderTypeMarket,
		TimeInForce: TimeInForceDay,
		Qty:         qty,
	}
}

// IsNotional reports whether the order is sized by dollar amount.
func (o OrderRequest) IsNotional() bool {
	return o.Notional.IsPositive()
}

// Validate checks the order is well formed before it leaves the process.
func (o OrderRequest) Validate() error {
	if o.Ticker == "" {
		return errors.New("order ticker is required")
	}
	if o.Side != SideBuy && o.Side != SideSell {
		return fmt.Errorf("invalid order side %q", o.Side)
	}
	hasQty := !o.Qty.IsZero()
	hasNotional := !o.Notional.IsZero()
	switch {
	case hasQty && hasNotional:
		return ErrOrderSizeAmbiguous
	case !hasQty && !hasNotional:
		return ErrOrderSizeMissing
	case hasQty && o.Qty.IsNegative():
		return fmt.Errorf("order qty must be positive, got %s", o.Qty)
	case hasNotional && o.Notional.IsNegative():
		return fmt.Errorf("order notional must be positive, got %s", o.Notional)
	}
	return nil
}

func (o OrderRequest) String() string {
	if o.IsNotional() {
		return fmt.Sprintf("%s %s $%s (%s)", o.Side, o.Ticker, o.Notional.StringFixed(2), o.TimeInForce)
	}
	return fmt.Sprintf("%s %s x%s (%s)", o.Side, o.Ticker, o.Qty, o.TimeInForce)
}

// OrderConfirmation is what the broker acknowledged. Qty and Notional are
// nullable because a notional order has no share count until it fills.
type OrderConfirmation struct {
	ID            string              `json:"id"`
	ClientOrderID string              `json:"client_order_id"`
	Ticker        string              `json:"symbol"`
	Status        string              `json:"status"`
	Qty           decimal.NullDecimal `json:"qty"`
	FilledQty     decimal.Decimal     `json:"filled_qty"`
	Notional      decimal.NullDecimal `json:"notional"`
}
