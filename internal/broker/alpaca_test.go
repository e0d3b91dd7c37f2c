package broker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexTrader/models"
)

func newTestAlpaca(t *testing.T, handler http.HandlerFunc) *AlpacaGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gw, err := NewAlpacaGateway(AlpacaConfig{
		APIKey:    "key",
		APISecret: "secret",
		BaseURL:   srv.URL,
		DataURL:   srv.URL,
		Timeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewAlpacaGateway: %v", err)
	}
	return gw
}

func TestNewAlpacaGatewayRequiresCredentials(t *testing.T) {
	_, err := NewAlpacaGateway(AlpacaConfig{APIKey: "key"})
	if !IsAuth(err) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestAlpacaCash(t *testing.T) {
	gw := newTestAlpaca(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/account" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("APCA-API-KEY-ID") != "key" || r.Header.Get("APCA-API-SECRET-KEY") != "secret" {
			t.Errorf("missing auth headers")
		}
		io.WriteString(w, `{"id":"acc","cash":"1000.50","buying_power":"2001"}`)
	})

	account, err := gw.Cash(context.Background())
	if err != nil {
		t.Fatalf("Cash: %v", err)
	}
	if !account.Cash.Equal(decimal.RequireFromString("1000.50")) {
		t.Fatalf("expected cash 1000.50, got %s", account.Cash)
	}
}

func TestAlpacaCashUnauthorized(t *testing.T) {
	gw := newTestAlpaca(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"code":40110000,"message":"request is not authorized"}`)
	})

	_, err := gw.Cash(context.Background())
	if !IsAuth(err) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestAlpacaPosition(t *testing.T) {
	gw := newTestAlpaca(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/positions/NU":
			io.WriteString(w, `{"symbol":"NU","qty":"50","market_value":"600.00"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"code":40410000,"message":"position does not exist"}`)
		}
	})

	pos, err := gw.Position(context.Background(), "NU")
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if !pos.Quantity.Equal(decimal.NewFromInt(50)) || !pos.MarketValue.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("unexpected position %+v", pos)
	}

	_, err = gw.Position(context.Background(), "AAPL")
	if !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}
}

func TestAlpacaSubmitNotionalOrder(t *testing.T) {
	var got map[string]any
	gw := newTestAlpaca(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		io.WriteString(w, `{"id":"ord-1","client_order_id":"c-1","symbol":"NU","status":"accepted","qty":null,"filled_qty":"0","notional":"100"}`)
	})

	order := models.NewNotionalOrder("NU", models.SideBuy, decimal.NewFromInt(100))
	order.ClientOrderID = "c-1"
	conf, err := gw.SubmitOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	if got["notional"] != "100.00" || got["side"] != "buy" || got["type"] != "market" || got["time_in_force"] != "day" {
		t.Fatalf("unexpected order body %v", got)
	}
	if _, ok := got["qty"]; ok {
		t.Fatalf("notional order must not send qty: %v", got)
	}
	if got["client_order_id"] != "c-1" {
		t.Fatalf("client order id not sent: %v", got)
	}
	if conf.ID != "ord-1" || conf.Qty.Valid {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
	if !conf.Notional.Valid || !conf.Notional.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected notional 100 in confirmation, got %+v", conf.Notional)
	}
}

func TestAlpacaSubmitQtyOrder(t *testing.T) {
	var got map[string]any
	gw := newTestAlpaca(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"id":"ord-2","symbol":"NU","status":"accepted","qty":"50","filled_qty":"0","notional":null}`)
	})

	conf, err := gw.SubmitOrder(context.Background(), models.NewQtyOrder("NU", models.SideSell, decimal.NewFromInt(50)))
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if got["qty"] != "50" || got["side"] != "sell" {
		t.Fatalf("unexpected order body %v", got)
	}
	if !conf.Qty.Valid || !conf.Qty.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected qty 50, got %+v", conf.Qty)
	}
}

func TestAlpacaSubmitErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"insufficient funds", http.StatusForbidden, IsRejected},
		{"unprocessable", http.StatusUnprocessableEntity, IsRejected},
		{"bad request", http.StatusBadRequest, IsRejected},
		{"throttled", http.StatusTooManyRequests, IsRetryable},
		{"server error", http.StatusBadGateway, IsRetryable},
		{"unauthorized", http.StatusUnauthorized, IsAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestAlpaca(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, `{"code":40310000,"message":"insufficient buying power"}`)
			})
			_, err := gw.SubmitOrder(context.Background(), models.NewNotionalOrder("NU", models.SideBuy, decimal.NewFromInt(100)))
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error classification: %v", err)
			}
		})
	}
}

func TestAlpacaSubmitRejectsMalformedOrder(t *testing.T) {
	gw := newTestAlpaca(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("malformed order must not reach the broker")
	})
	_, err := gw.SubmitOrder(context.Background(), models.OrderRequest{Ticker: "NU", Side: models.SideBuy})
	if !IsRejected(err) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
}

func TestAlpacaConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	gw, err := NewAlpacaGateway(AlpacaConfig{APIKey: "k", APISecret: "s", BaseURL: url, DataURL: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewAlpacaGateway: %v", err)
	}
	if _, err := gw.Cash(context.Background()); !IsRetryable(err) {
		t.Fatalf("expected ConnectivityError, got %v", err)
	}
}

func TestAlpacaLatestPrices(t *testing.T) {
	gw := newTestAlpaca(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/stocks/trades/latest" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbols") != "NU,AAPL" {
			t.Errorf("unexpected symbols %q", r.URL.Query().Get("symbols"))
		}
		io.WriteString(w, `{"trades":{"NU":{"p":12.34,"s":100},"AAPL":{"p":189.5}}}`)
	})

	prices, err := gw.LatestPrices(context.Background(), []string{"NU", "AAPL"})
	if err != nil {
		t.Fatalf("LatestPrices: %v", err)
	}
	if !prices["NU"].Equal(decimal.RequireFromString("12.34")) {
		t.Fatalf("unexpected NU price %s", prices["NU"])
	}
	if len(prices) != 2 {
		t.Fatalf("expected 2 prices, got %v", prices)
	}
}
