package sizing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexTrader/consts"
	"github.com/dyike/CortexTrader/models"
)

// Reasons a decision produces no order.
const (
	ReasonHold                = "hold"
	ReasonNonPositiveNotional = "non_positive_notional"
	ReasonNoPosition          = "no_position"
	ReasonNonPositiveQty      = "non_positive_qty"
)

var (
	ErrMissingAccount = errors.New("account snapshot required to size a BUY")
	ErrMissingPrice   = errors.New("latest price required for share sizing")
)

// Policy turns a decision plus current holdings into an order. Fractions are
// applied as given; a SELL fraction above 1 is left for the broker to reject.
type Policy struct {
	BuyFraction  decimal.Decimal
	SellFraction decimal.Decimal
	Mode         string
}

func NewPolicy(buyFraction, sellFraction float64, mode string) Policy {
	if mode == "" {
		mode = consts.SizingNotional
	}
	return Policy{
		BuyFraction:  decimal.NewFromFloat(buyFraction),
		SellFraction: decimal.NewFromFloat(sellFraction),
		Mode:         mode,
	}
}

// Result is either an order or a no-op with a reason. Notional is the
// dollar figure recorded in the audit log for the order.
type Result struct {
	Order    *models.OrderRequest
	Notional decimal.Decimal
	Reason   string
}

func (r Result) NoOp() bool {
	return r.Order == nil
}

func noOp(reason string) Result {
	return Result{Reason: reason}
}

// NeedsPrice reports whether sizing this action requires a market price.
func (p Policy) NeedsPrice(action models.Action) bool {
	return action == models.ActionBuy && p.Mode == consts.SizingShares
}

// Size is pure: the same inputs always produce the same result.
func (p Policy) Size(decision models.Decision, account *models.AccountSnapshot, position *models.PositionSnapshot, price decimal.Decimal) (Result, error) {
	switch decision.Action {
	case models.ActionBuy:
		return p.sizeBuy(decision.Ticker, account, price)
	case models.ActionSell:
		return p.sizeSell(decision.Ticker, position), nil
	default:
		return noOp(ReasonHold), nil
	}
}

func (p Policy) sizeBuy(ticker string, account *models.AccountSnapshot, price decimal.Decimal) (Result, error) {
	if account == nil {
		return Result{}, ErrMissingAccount
	}
	notional := account.Cash.Mul(p.BuyFraction)
	if !notional.IsPositive() {
		return noOp(ReasonNonPositiveNotional), nil
	}

	if p.Mode != consts.SizingShares {
		order := models.NewNotionalOrder(ticker, models.SideBuy, notional.Round(2))
		return Result{Order: &order, Notional: order.Notional}, nil
	}

	if !price.IsPositive() {
		return Result{}, fmt.Errorf("%w: %s", ErrMissingPrice, ticker)
	}
	qty := notional.Div(price).Floor()
	if qty.LessThan(decimal.NewFromInt(1)) {
		qty = decimal.NewFromInt(1)
	}
	order := models.NewQtyOrder(ticker, models.SideBuy, qty)
	return Result{Order: &order, Notional: qty.Mul(price).Round(2)}, nil
}

func (p Policy) sizeSell(ticker string, position *models.PositionSnapshot) Result {
	if position == nil {
		return noOp(ReasonNoPosition)
	}
	qty := position.Quantity.Mul(p.SellFraction)
	if !qty.IsPositive() {
		return noOp(ReasonNonPositiveQty)
	}
	order := models.NewQtyOrder(ticker, models.SideSell, qty)
	return Result{Order: &order, Notional: position.MarketValue.Mul(p.SellFraction).Round(2)}
}
