package dataflows

import (
	"context"
	"errors"
	"strings"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"
)

type LongportConfig struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

var ErrLongportCredentials = errors.New("longport API credentials not configured")

type LongportClient struct {
	quoteCtx *quote.QuoteContext
}

func NewLongportClient(cfg LongportConfig) (*LongportClient, error) {
	if cfg.AppKey == "" || cfg.AppSecret == "" || cfg.AccessToken == "" {
		return nil, ErrLongportCredentials
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.AppKey, cfg.AppSecret, cfg.AccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{quoteCtx: quoteContext}, nil
}

// LongportSymbol maps a bare US ticker onto Longport's market-suffixed form.
func LongportSymbol(ticker string) string {
	symbol := NormalizeSymbol(ticker)
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + ".US"
}

func (lpc *LongportClient) GetSticksWithDay(ctx context.Context, symbol string, count int) ([]*quote.Candlestick, error) {
	if lpc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}
	return lpc.quoteCtx.Candlesticks(ctx, symbol, quote.PeriodDay, int32(count), quote.AdjustTypeNo)
}

// LatestPrices uses the close of the most recent daily candlestick.
func (lpc *LongportClient) LatestPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(tickers))
	for _, ticker := range tickers {
		sticks, err := lpc.GetSticksWithDay(ctx, LongportSymbol(ticker), 1)
		if err != nil {
			return nil, err
		}
		if len(sticks) == 0 {
			continue
		}
		last := sticks[len(sticks)-1]
		if last == nil || last.Close == nil || !last.Close.IsPositive() {
			continue
		}
		prices[ticker] = *last.Close
	}
	return prices, nil
}
