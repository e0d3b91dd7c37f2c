package models

import "github.com/shopspring/decimal"

// AccountSnapshot is the account state read right before sizing a BUY.
type AccountSnapshot struct {
	Cash decimal.Decimal `json:"cash"`
}

// PositionSnapshot is an open position read right before sizing a SELL.
type PositionSnapshot struct {
	Ticker      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"qty"`
	MarketValue decimal.Decimal `json:"market_value"`
}
