package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LogAction is the action column of the audit log.
type LogAction string

const (
	LogBuy   LogAction = "BUY"
	LogSell  LogAction = "SELL"
	LogError LogAction = "ERROR"
)

// TradeLogHeader is the column order of the audit log.
var TradeLogHeader = []string{
	"timestamp",
	"date",
	"ticker",
	"action",
	"qty",
	"notional_usd",
	"decision",
	"analysis_str",
}

// TradeLogRecord is one execution attempt for one ticker.
type TradeLogRecord struct {
	Timestamp   time.Time           `json:"timestamp"`
	Date        string              `json:"date"`
	Ticker      string              `json:"ticker"`
	Action      LogAction           `json:"action"`
	Qty         decimal.NullDecimal `json:"qty"`
	NotionalUSD decimal.Decimal     `json:"notional_usd"`
	Decision    string              `json:"decision"`
	AnalysisStr string              `json:"analysis_str"`
}

// NewErrorRecord builds the ERROR row written when an attempt fails.
func NewErrorRecord(ts time.Time, date, ticker, decision string, err error) TradeLogRecord {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return TradeLogRecord{
		Timestamp:   ts.UTC(),
		Date:        date,
		Ticker:      ticker,
		Action:      LogError,
		Qty:         decimal.NullDecimal{Decimal: decimal.Zero, Valid: true},
		NotionalUSD: decimal.Zero,
		Decision:    decision,
		AnalysisStr: msg,
	}
}

// Row renders the record in TradeLogHeader order.
func (r TradeLogRecord) Row() []string {
	qty := ""
	if r.Qty.Valid {
		qty = r.Qty.Decimal.String()
	}
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.Date,
		r.Ticker,
		string(r.Action),
		qty,
		r.NotionalUSD.String(),
		r.Decision,
		r.AnalysisStr,
	}
}
