package broker

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dyike/CortexTrader/config"
	"github.com/dyike/CortexTrader/consts"
	"github.com/dyike/CortexTrader/internal/cache"
	"github.com/dyike/CortexTrader/internal/dataflows"
)

// NewFromConfig builds the gateway selected by cfg.Broker, decorated with
// the configured price source and retry policy.
func NewFromConfig(cfg *config.Config, log *zap.Logger) (Gateway, error) {
	if log == nil {
		log = zap.NewNop()
	}

	quotes, err := NewPriceSource(cfg)
	if err != nil {
		return nil, err
	}

	var gw Gateway
	switch cfg.Broker {
	case consts.BrokerAlpaca:
		alpaca, err := NewAlpacaGateway(AlpacaConfig{
			APIKey:    cfg.AlpacaAPIKey,
			APISecret: cfg.AlpacaAPISecret,
			BaseURL:   cfg.AlpacaBaseURL,
			DataURL:   cfg.AlpacaDataURL,
			Timeout:   cfg.BrokerTimeout,
		})
		if err != nil {
			return nil, err
		}
		gw = WithPriceSource(alpaca, quotes)
		log.Info("broker gateway ready",
			zap.String("broker", cfg.Broker),
			zap.String("endpoint", cfg.AlpacaBaseURL),
			zap.Bool("paper", cfg.IsPaper()))

	case consts.BrokerPaper:
		// The simulated account has no market of its own.
		if quotes == nil {
			quotes = cache.NewPriceCache(dataflows.NewYahooFinanceClient(), consts.PriceCacheTTL, cache.WithLogger(log))
		}
		gw = NewPaperGateway(decimal.NewFromFloat(cfg.PaperCash), WithQuotes(quotes))
		log.Info("broker gateway ready",
			zap.String("broker", cfg.Broker),
			zap.Float64("starting_cash", cfg.PaperCash))

	default:
		return nil, fmt.Errorf("unknown broker: %s", cfg.Broker)
	}

	if cfg.BrokerMaxRetries > 0 {
		return WithRetry(gw, DefaultBackoff(cfg.BrokerMaxRetries), log), nil
	}
	return gw, nil
}

// NewPriceSource returns the market data source named by cfg.PriceSource,
// or nil when prices come from the broker itself.
func NewPriceSource(cfg *config.Config) (PriceSource, error) {
	switch cfg.PriceSource {
	case "", consts.PriceSourceBroker:
		return nil, nil
	case consts.PriceSourceYahoo:
		return cache.NewPriceCache(dataflows.NewYahooFinanceClient(), consts.PriceCacheTTL), nil
	case consts.PriceSourceLongport:
		client, err := dataflows.NewLongportClient(dataflows.LongportConfig{
			AppKey:      cfg.LongportAppKey,
			AppSecret:   cfg.LongportAppSecret,
			AccessToken: cfg.LongportAccessToken,
		})
		if err != nil {
			return nil, fmt.Errorf("longport price source: %w", err)
		}
		return cache.NewPriceCache(client, consts.PriceCacheTTL), nil
	default:
		return nil, fmt.Errorf("unknown price source: %s", cfg.PriceSource)
	}
}
