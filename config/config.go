package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/dyike/CortexTrader/consts"
)

type Config struct {
	ProjectDir string `json:"project_dir"`
	DataDir    string `json:"data_dir"`

	// Audit log
	TradeLogPath   string `json:"trade_log_path"`
	TradeJournalDB string `json:"trade_journal_db"`

	// Broker
	Broker           string        `json:"broker"`
	AlpacaAPIKey     string        `json:"alpaca_api_key"`
	AlpacaAPISecret  string        `json:"alpaca_api_secret"`
	AlpacaBaseURL    string        `json:"alpaca_base_url"`
	AlpacaDataURL    string        `json:"alpaca_data_url"`
	BrokerTimeout    time.Duration `json:"broker_timeout"`
	BrokerMaxRetries int           `json:"broker_max_retries"`
	PaperCash        float64       `json:"paper_cash"`

	// Sizing
	BuyFraction  float64 `json:"buy_fraction"`
	SellFraction float64 `json:"sell_fraction"`
	SizingMode   string  `json:"sizing_mode"`

	// Market data
	PriceSource string `json:"price_source"`

	// Decision source
	DecisionURL   string `json:"decision_url"`
	DecisionsFile string `json:"decisions_file"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	DefaultTickers []string `json:"default_tickers"`

	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
	Debug    bool   `json:"debug"`
}

var (
	ErrMissingCredentials = errors.New("missing Alpaca credentials: set ALPACA_KEY_PAPER and ALPACA_SECRET_PAPER")
)

func defaults() *Config {
	currentDir, _ := os.Getwd()

	return &Config{
		ProjectDir:   currentDir,
		DataDir:      filepath.Join(currentDir, "data"),
		TradeLogPath: filepath.Join(currentDir, "data", "trades", "trade_history.csv"),

		Broker:        consts.BrokerAlpaca,
		AlpacaBaseURL: consts.DefaultAlpacaBaseURL,
		AlpacaDataURL: consts.DefaultAlpacaDataURL,
		BrokerTimeout: 30 * time.Second,
		PaperCash:     consts.DefaultPaperCash,

		BuyFraction:  consts.DefaultBuyFraction,
		SellFraction: consts.DefaultSellFraction,
		SizingMode:   consts.SizingNotional,

		PriceSource: consts.PriceSourceBroker,

		DefaultTickers: []string{consts.DefaultTicker},

		LogLevel: "info",
	}
}

// DefaultConfig returns the defaults overridden by .env and the environment.
func DefaultConfig() *Config {
	cfg, err := Load("")
	if err != nil {
		cfg = defaults()
		cfg.loadFromEnv()
	}
	return cfg
}

// Load builds the configuration in layers: defaults, then the JSON file at
// path (if any), then .env, then the process environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if strings.TrimSpace(path) != "" {
		if err := loadConfigFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()
	return cfg, nil
}

func loadConfigFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config json: %w", err)
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("TRADE_LOG_PATH"); val != "" {
		c.TradeLogPath = val
	}
	if val := os.Getenv("TRADE_JOURNAL_DB"); val != "" {
		c.TradeJournalDB = val
	}

	if val := os.Getenv("TRADE_BROKER"); val != "" {
		c.Broker = strings.ToLower(val)
	}
	if val := os.Getenv("ALPACA_KEY_PAPER"); val != "" {
		c.AlpacaAPIKey = val
	}
	if val := os.Getenv("ALPACA_SECRET_PAPER"); val != "" {
		c.AlpacaAPISecret = val
	}
	if val := os.Getenv("ALPACA_BASE_URL"); val != "" {
		c.AlpacaBaseURL = val
	}
	if val := os.Getenv("ALPACA_DATA_URL"); val != "" {
		c.AlpacaDataURL = val
	}
	if val := os.Getenv("BROKER_TIMEOUT"); val != "" {
		if d, err := cast.ToDurationE(val); err == nil {
			c.BrokerTimeout = d
		}
	}
	if val := os.Getenv("BROKER_MAX_RETRIES"); val != "" {
		if n, err := cast.ToIntE(val); err == nil {
			c.BrokerMaxRetries = n
		}
	}
	if val := os.Getenv("PAPER_CASH"); val != "" {
		if f, err := cast.ToFloat64E(val); err == nil {
			c.PaperCash = f
		}
	}

	if val := os.Getenv("BUY_PERCENT"); val != "" {
		if f, err := cast.ToFloat64E(val); err == nil {
			c.BuyFraction = f
		}
	}
	if val := os.Getenv("SELL_PERCENT"); val != "" {
		if f, err := cast.ToFloat64E(val); err == nil {
			c.SellFraction = f
		}
	}
	if val := os.Getenv("SIZING_MODE"); val != "" {
		c.SizingMode = strings.ToLower(val)
	}
	if val := os.Getenv("PRICE_SOURCE"); val != "" {
		c.PriceSource = strings.ToLower(val)
	}

	if val := os.Getenv("DECISION_URL"); val != "" {
		c.DecisionURL = val
	}
	if val := os.Getenv("DECISIONS_FILE"); val != "" {
		c.DecisionsFile = val
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("DEFAULT_TICKERS"); val != "" {
		c.DefaultTickers = splitTickers(val)
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("LOG_FILE"); val != "" {
		c.LogFile = val
	}
	if val := os.Getenv("CORTEXTRADER_DEBUG"); val != "" {
		if enabled, err := cast.ToBoolE(val); err == nil {
			c.Debug = enabled
		}
	}
}

func splitTickers(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if t := strings.ToUpper(strings.TrimSpace(part)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Validate rejects values that would make a run meaningless. Fractions are
// only checked for sign; a fraction above 1.0 is the caller's choice.
func (c *Config) Validate() error {
	if math.IsNaN(c.BuyFraction) || c.BuyFraction < 0 {
		return fmt.Errorf("buy fraction must be non-negative, got %v", c.BuyFraction)
	}
	if math.IsNaN(c.SellFraction) || c.SellFraction < 0 {
		return fmt.Errorf("sell fraction must be non-negative, got %v", c.SellFraction)
	}
	switch c.Broker {
	case consts.BrokerAlpaca, consts.BrokerPaper:
	default:
		return fmt.Errorf("unknown broker %q", c.Broker)
	}
	switch c.SizingMode {
	case consts.SizingNotional, consts.SizingShares:
	default:
		return fmt.Errorf("unknown sizing mode %q", c.SizingMode)
	}
	switch c.PriceSource {
	case consts.PriceSourceBroker, consts.PriceSourceYahoo, consts.PriceSourceLongport:
	default:
		return fmt.Errorf("unknown price source %q", c.PriceSource)
	}
	if c.BrokerMaxRetries < 0 {
		return fmt.Errorf("broker max retries must be non-negative, got %d", c.BrokerMaxRetries)
	}
	if strings.TrimSpace(c.TradeLogPath) == "" {
		return errors.New("trade log path is required")
	}
	return nil
}

// Warnings lists settings that are legal but probably not intended.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.BuyFraction == 0 {
		warnings = append(warnings, "buy fraction is 0: every BUY will be skipped")
	}
	if c.BuyFraction > 1 {
		warnings = append(warnings, fmt.Sprintf("buy fraction %.2f spends more than the available cash", c.BuyFraction))
	}
	if c.SellFraction == 0 {
		warnings = append(warnings, "sell fraction is 0: every SELL will be skipped")
	}
	if c.SellFraction > 1 {
		warnings = append(warnings, fmt.Sprintf("sell fraction %.2f exceeds the held quantity; the broker will reject it", c.SellFraction))
	}
	if c.PriceSource == consts.PriceSourceLongport && !c.HasLongportCredentials() {
		warnings = append(warnings, "price source is longport but Longport credentials are not configured")
	}
	return warnings
}

// ValidateCredentials fails when the selected broker cannot authenticate.
func (c *Config) ValidateCredentials() error {
	if c.Broker != consts.BrokerAlpaca {
		return nil
	}
	if strings.TrimSpace(c.AlpacaAPIKey) == "" || strings.TrimSpace(c.AlpacaAPISecret) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// IsPaper reports whether orders go to a simulated account.
func (c *Config) IsPaper() bool {
	if c.Broker == consts.BrokerPaper {
		return true
	}
	return strings.Contains(strings.ToLower(c.AlpacaBaseURL), "paper")
}

func (c *Config) HasLongportCredentials() bool {
	return c.LongportAppKey != "" && c.LongportAppSecret != "" && c.LongportAccessToken != ""
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, filepath.Dir(c.TradeLogPath)}
	if c.TradeJournalDB != "" {
		dirs = append(dirs, filepath.Dir(c.TradeJournalDB))
	}
	if c.LogFile != "" {
		dirs = append(dirs, filepath.Dir(c.LogFile))
	}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" || path == "." {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}

// Redacted returns a copy safe to print or persist.
func (c *Config) Redacted() Config {
	clone := *c
	clone.AlpacaAPISecret = mask(clone.AlpacaAPISecret)
	clone.AlpacaAPIKey = mask(clone.AlpacaAPIKey)
	clone.LongportAppSecret = mask(clone.LongportAppSecret)
	clone.LongportAccessToken = mask(clone.LongportAccessToken)
	return clone
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", 8)
}
