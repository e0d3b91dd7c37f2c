package dataflows

import (
	"context"
	"fmt"

	"github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
)

// QuoteFunc fetches one Yahoo Finance quote.
type QuoteFunc func(symbol string) (*finance.Quote, error)

// YahooFinanceClient prices tickers from Yahoo Finance regular market quotes
type YahooFinanceClient struct {
	getQuote QuoteFunc
	retry    *RetryConfig
}

// NewYahooFinanceClient creates a new Yahoo Finance client
func NewYahooFinanceClient() *YahooFinanceClient {
	return &YahooFinanceClient{
		getQuote: quote.Get,
		retry:    DefaultRetryConfig(),
	}
}

// LatestPrices returns the regular market price for each ticker Yahoo knows.
// Unknown tickers are left out; a failed lookup fails the whole batch.
func (yf *YahooFinanceClient) LatestPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(tickers))
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := ValidateSymbol(ticker); err != nil {
			return nil, err
		}
		symbol := NormalizeSymbol(ticker)

		var q *finance.Quote
		err := WithRetry(yf.retry, func() error {
			var err error
			q, err = yf.getQuote(symbol)
			if err != nil {
				return fmt.Errorf("failed to get quote for %s: %w", symbol, err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if q == nil || q.RegularMarketPrice <= 0 {
			continue
		}
		prices[ticker] = decimal.NewFromFloat(q.RegularMarketPrice)
	}
	return prices, nil
}
