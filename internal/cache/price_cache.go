package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Quoter is anything that returns latest prices keyed by requested ticker.
type Quoter interface {
	LatestPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}

type cachedPrice struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// PriceCache keeps market quotes in memory for a short TTL so one run does
// not ask the data provider twice for the same ticker. Account state is
// never cached here.
type PriceCache struct {
	src Quoter
	ttl time.Duration
	now func() time.Time
	log *zap.Logger

	mu      sync.RWMutex
	entries map[string]cachedPrice
}

type Option func(*PriceCache)

func WithClock(now func() time.Time) Option {
	return func(c *PriceCache) {
		c.now = now
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *PriceCache) {
		if log != nil {
			c.log = log
		}
	}
}

func NewPriceCache(src Quoter, ttl time.Duration, opts ...Option) *PriceCache {
	c := &PriceCache{
		src:     src,
		ttl:     ttl,
		now:     time.Now,
		log:     zap.NewNop(),
		entries: make(map[string]cachedPrice),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *PriceCache) LatestPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(tickers))
	var missing []string

	now := c.now()
	c.mu.RLock()
	for _, t := range tickers {
		if e, ok := c.entries[key(t)]; ok && now.Sub(e.fetchedAt) <= c.ttl {
			out[t] = e.price
			continue
		}
		missing = append(missing, t)
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		c.log.Debug("price cache hit", zap.Strings("tickers", tickers))
		return out, nil
	}

	fetched, err := c.src.LatestPrices(ctx, missing)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	for t, price := range fetched {
		c.entries[key(t)] = cachedPrice{price: price, fetchedAt: now}
		out[t] = price
	}
	c.mu.Unlock()
	return out, nil
}

func (c *PriceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedPrice)
}

// Len returns the number of cached tickers, fresh or not.
func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func key(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
