package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/dyike/CortexTrader/models"
)

type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	DataURL   string
	Timeout   time.Duration
}

// AlpacaGateway talks to the Alpaca trading API v2 and its market data API.
type AlpacaGateway struct {
	trading *resty.Client
	data    *resty.Client
}

func NewAlpacaGateway(cfg AlpacaConfig) (*AlpacaGateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.APISecret) == "" {
		return nil, &AuthError{Op: "connect", Err: errors.New("API key and secret are required")}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &AlpacaGateway{
		trading: newAlpacaClient(cfg.BaseURL, cfg),
		data:    newAlpacaClient(cfg.DataURL, cfg),
	}, nil
}

func newAlpacaClient(baseURL string, cfg AlpacaConfig) *resty.Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("APCA-API-KEY-ID", cfg.APIKey)
	client.SetHeader("APCA-API-SECRET-KEY", cfg.APISecret)
	client.SetHeader("Accept", "application/json")
	return client
}

type alpacaError struct {
	Code    json.Number `json:"code"`
	Message string      `json:"message"`
}

type alpacaAccount struct {
	Cash decimal.Decimal `json:"cash"`
}

type alpacaPosition struct {
	Symbol      string          `json:"symbol"`
	Qty         decimal.Decimal `json:"qty"`
	MarketValue decimal.Decimal `json:"market_value"`
}

type alpacaOrderRequest struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	Qty           string `json:"qty,omitempty"`
	Notional      string `json:"notional,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

type alpacaLatestTrades struct {
	Trades map[string]struct {
		Price decimal.Decimal `json:"p"`
	} `json:"trades"`
}

func (g *AlpacaGateway) Cash(ctx context.Context) (models.AccountSnapshot, error) {
	resp, err := g.trading.R().SetContext(ctx).Get("/v2/account")
	if err != nil {
		return models.AccountSnapshot{}, &ConnectivityError{Op: "get account", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return models.AccountSnapshot{}, classify("get account", "", resp)
	}

	var account alpacaAccount
	if err := json.Unmarshal(resp.Body(), &account); err != nil {
		return models.AccountSnapshot{}, fmt.Errorf("failed to parse account response: %w", err)
	}
	return models.AccountSnapshot{Cash: account.Cash}, nil
}

func (g *AlpacaGateway) Position(ctx context.Context, ticker string) (models.PositionSnapshot, error) {
	resp, err := g.trading.R().
		SetContext(ctx).
		SetPathParam("symbol", ticker).
		Get("/v2/positions/{symbol}")
	if err != nil {
		return models.PositionSnapshot{}, &ConnectivityError{Op: "get position", Err: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return models.PositionSnapshot{}, fmt.Errorf("%s: %w", ticker, ErrPositionNotFound)
	}
	if resp.StatusCode() != http.StatusOK {
		return models.PositionSnapshot{}, classify("get position", ticker, resp)
	}

	var pos alpacaPosition
	if err := json.Unmarshal(resp.Body(), &pos); err != nil {
		return models.PositionSnapshot{}, fmt.Errorf("failed to parse position response: %w", err)
	}
	return models.PositionSnapshot{
		Ticker:      pos.Symbol,
		Quantity:    pos.Qty,
		MarketValue: pos.MarketValue,
	}, nil
}

func (g *AlpacaGateway) SubmitOrder(ctx context.Context, order models.OrderRequest) (models.OrderConfirmation, error) {
	if err := order.Validate(); err != nil {
		return models.OrderConfirmation{}, &RejectedError{Ticker: order.Ticker, Message: err.Error()}
	}

	body := alpacaOrderRequest{
		Symbol:        order.Ticker,
		Side:          string(order.Side),
		Type:          string(order.Type),
		TimeInForce:   string(order.TimeInForce),
		ClientOrderID: order.ClientOrderID,
	}
	if order.IsNotional() {
		body.Notional = order.Notional.StringFixed(2)
	} else {
		body.Qty = order.Qty.String()
	}

	resp, err := g.trading.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/v2/orders")
	if err != nil {
		return models.OrderConfirmation{}, &ConnectivityError{Op: "submit order", Err: err}
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return models.OrderConfirmation{}, classify("submit order", order.Ticker, resp)
	}

	var conf models.OrderConfirmation
	if err := json.Unmarshal(resp.Body(), &conf); err != nil {
		return models.OrderConfirmation{}, fmt.Errorf("failed to parse order response: %w", err)
	}
	return conf, nil
}

func (g *AlpacaGateway) LatestPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(tickers))
	if len(tickers) == 0 {
		return prices, nil
	}

	resp, err := g.data.R().
		SetContext(ctx).
		SetQueryParam("symbols", strings.Join(tickers, ",")).
		Get("/v2/stocks/trades/latest")
	if err != nil {
		return nil, &ConnectivityError{Op: "latest trades", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, classify("latest trades", "", resp)
	}

	var latest alpacaLatestTrades
	if err := json.Unmarshal(resp.Body(), &latest); err != nil {
		return nil, fmt.Errorf("failed to parse latest trades response: %w", err)
	}
	for symbol, trade := range latest.Trades {
		if trade.Price.IsPositive() {
			prices[symbol] = trade.Price
		}
	}
	return prices, nil
}

// classify maps a non-success response onto the gateway error taxonomy.
func classify(op, ticker string, resp *resty.Response) error {
	var body alpacaError
	_ = json.Unmarshal(resp.Body(), &body)
	msg := body.Message
	if msg == "" {
		msg = strings.TrimSpace(resp.String())
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}

	status := resp.StatusCode()
	switch {
	case status == http.StatusUnauthorized:
		return &AuthError{Op: op, Err: errors.New(msg)}
	case status == http.StatusTooManyRequests || status >= 500:
		return &ConnectivityError{Op: op, Status: status, Err: errors.New(msg)}
	case status == http.StatusForbidden && ticker == "":
		return &AuthError{Op: op, Err: errors.New(msg)}
	default:
		return &RejectedError{Ticker: ticker, Status: status, Code: body.Code.String(), Message: msg}
	}
}
