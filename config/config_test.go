package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyike/CortexTrader/consts"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BUY_PERCENT", "")
	t.Setenv("SELL_PERCENT", "")
	t.Setenv("TRADE_BROKER", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BuyFraction != consts.DefaultBuyFraction {
		t.Fatalf("expected default buy fraction %v, got %v", consts.DefaultBuyFraction, cfg.BuyFraction)
	}
	if cfg.SellFraction != consts.DefaultSellFraction {
		t.Fatalf("expected default sell fraction %v, got %v", consts.DefaultSellFraction, cfg.SellFraction)
	}
	if filepath.Base(cfg.TradeLogPath) != "trade_history.csv" {
		t.Fatalf("unexpected trade log path %s", cfg.TradeLogPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"buy_fraction": 0.3, "sell_fraction": 0.5, "broker": "paper"}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TRADE_BROKER", "")
	t.Setenv("BUY_PERCENT", "0.2")
	t.Setenv("SELL_PERCENT", "")
	t.Setenv("BROKER_TIMEOUT", "5s")
	t.Setenv("BROKER_MAX_RETRIES", "3")
	t.Setenv("ALPACA_KEY_PAPER", "key")
	t.Setenv("ALPACA_SECRET_PAPER", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BuyFraction != 0.2 {
		t.Fatalf("env should override file buy fraction, got %v", cfg.BuyFraction)
	}
	if cfg.SellFraction != 0.5 {
		t.Fatalf("file sell fraction should apply, got %v", cfg.SellFraction)
	}
	if cfg.Broker != consts.BrokerPaper {
		t.Fatalf("expected paper broker, got %s", cfg.Broker)
	}
	if cfg.BrokerTimeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", cfg.BrokerTimeout)
	}
	if cfg.BrokerMaxRetries != 3 {
		t.Fatalf("expected 3 retries, got %d", cfg.BrokerMaxRetries)
	}
	if cfg.AlpacaAPIKey != "key" || cfg.AlpacaAPISecret != "secret" {
		t.Fatalf("credentials not loaded from env")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"negative buy", func(c *Config) { c.BuyFraction = -0.1 }, true},
		{"negative sell", func(c *Config) { c.SellFraction = -1 }, true},
		{"sell above one allowed", func(c *Config) { c.SellFraction = 1.5 }, false},
		{"unknown broker", func(c *Config) { c.Broker = "ib" }, true},
		{"unknown sizing", func(c *Config) { c.SizingMode = "kelly" }, true},
		{"unknown price source", func(c *Config) { c.PriceSource = "bloomberg" }, true},
		{"negative retries", func(c *Config) { c.BrokerMaxRetries = -1 }, true},
		{"empty trade log", func(c *Config) { c.TradeLogPath = " " }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWarnings(t *testing.T) {
	cfg := defaults()
	if w := cfg.Warnings(); len(w) != 0 {
		t.Fatalf("defaults should not warn, got %v", w)
	}
	cfg.BuyFraction = 0
	cfg.SellFraction = 2
	if w := cfg.Warnings(); len(w) != 2 {
		t.Fatalf("expected 2 warnings, got %v", w)
	}
}

func TestValidateCredentials(t *testing.T) {
	cfg := defaults()
	if err := cfg.ValidateCredentials(); err != ErrMissingCredentials {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}

	cfg.Broker = consts.BrokerPaper
	if err := cfg.ValidateCredentials(); err != nil {
		t.Fatalf("paper broker needs no credentials: %v", err)
	}

	cfg.Broker = consts.BrokerAlpaca
	cfg.AlpacaAPIKey = "k"
	cfg.AlpacaAPISecret = "s"
	if err := cfg.ValidateCredentials(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIsPaper(t *testing.T) {
	cfg := defaults()
	if !cfg.IsPaper() {
		t.Fatalf("default Alpaca endpoint is paper")
	}
	cfg.AlpacaBaseURL = "https://api.alpaca.markets"
	if cfg.IsPaper() {
		t.Fatalf("live endpoint reported as paper")
	}
}

func TestRedacted(t *testing.T) {
	cfg := defaults()
	cfg.AlpacaAPISecret = "abcdefghijkl"
	red := cfg.Redacted()
	if red.AlpacaAPISecret == cfg.AlpacaAPISecret {
		t.Fatalf("secret not masked")
	}
	if cfg.AlpacaAPISecret != "abcdefghijkl" {
		t.Fatalf("Redacted mutated the original")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := defaults()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.TradeLogPath = filepath.Join(dir, "data", "trades", "trade_history.csv")
	cfg.TradeJournalDB = filepath.Join(dir, "journal", "trades.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, p := range []string{filepath.Dir(cfg.TradeLogPath), filepath.Dir(cfg.TradeJournalDB)} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Fatalf("directory %s not created: %v", p, err)
		}
	}
}
