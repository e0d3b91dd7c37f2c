package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dyike/CortexTrader/models"
)

// RetryPolicy decides whether a failed call is attempted again and after
// how long. attempt counts from 1 for the first retry.
type RetryPolicy interface {
	Next(attempt int, err error) (time.Duration, bool)
}

// NoRetry fires every call exactly once.
type NoRetry struct{}

func (NoRetry) Next(int, error) (time.Duration, bool) { return 0, false }

// Backoff retries connectivity failures with bounded exponential delays.
// Rejections and auth failures are never retried.
type Backoff struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

func DefaultBackoff(maxRetries int) Backoff {
	return Backoff{
		MaxRetries: maxRetries,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
	}
}

func (b Backoff) Next(attempt int, err error) (time.Duration, bool) {
	if attempt > b.MaxRetries || !IsRetryable(err) {
		return 0, false
	}
	delay := float64(b.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= b.Multiplier
		if time.Duration(delay) > b.MaxDelay {
			break
		}
	}
	if b.MaxDelay > 0 && time.Duration(delay) > b.MaxDelay {
		return b.MaxDelay, true
	}
	return time.Duration(delay), true
}

type retryingGateway struct {
	Gateway
	policy RetryPolicy
	log    *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps gw so failed calls are retried under policy. Orders get a
// client order id before the first attempt, so a retried submit cannot
// place a second order at the broker.
func WithRetry(gw Gateway, policy RetryPolicy, log *zap.Logger) Gateway {
	if policy == nil {
		policy = NoRetry{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &retryingGateway{Gateway: gw, policy: policy, log: log, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (g *retryingGateway) do(ctx context.Context, op string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		delay, ok := g.policy.Next(attempt, err)
		if !ok {
			if attempt > 1 {
				return fmt.Errorf("%s failed after %d attempts: %w", op, attempt, err)
			}
			return err
		}
		g.log.Warn("retrying broker call",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := g.sleep(ctx, delay); err != nil {
			return &ConnectivityError{Op: op, Err: err}
		}
	}
}

func (g *retryingGateway) Cash(ctx context.Context) (models.AccountSnapshot, error) {
	var out models.AccountSnapshot
	err := g.do(ctx, "get account", func() (err error) {
		out, err = g.Gateway.Cash(ctx)
		return err
	})
	return out, err
}

func (g *retryingGateway) Position(ctx context.Context, ticker string) (models.PositionSnapshot, error) {
	var out models.PositionSnapshot
	err := g.do(ctx, "get position", func() (err error) {
		out, err = g.Gateway.Position(ctx, ticker)
		return err
	})
	return out, err
}

func (g *retryingGateway) SubmitOrder(ctx context.Context, order models.OrderRequest) (models.OrderConfirmation, error) {
	if order.ClientOrderID == "" {
		order.ClientOrderID = uuid.NewString()
	}
	var out models.OrderConfirmation
	err := g.do(ctx, "submit order", func() (err error) {
		out, err = g.Gateway.SubmitOrder(ctx, order)
		return err
	})
	return out, err
}

func (g *retryingGateway) LatestPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	var out map[string]decimal.Decimal
	err := g.do(ctx, "latest trades", func() (err error) {
		out, err = g.Gateway.LatestPrices(ctx, tickers)
		return err
	})
	return out, err
}
