package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dyike/CortexTrader/consts"
)

func TestManagerCreatesAndUpdates(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	path := filepath.Join(dir, "config.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	cfg := mgr.Get()
	cfg.TradeLogPath = filepath.Join(dir, "trades", "log.csv")
	cfg.BuyFraction = 0.25

	data, _ := json.Marshal(cfg)
	if err := mgr.UpdateFromJSON(string(data)); err != nil {
		t.Fatalf("UpdateFromJSON: %v", err)
	}

	updated := mgr.Get()
	if updated.TradeLogPath != cfg.TradeLogPath {
		t.Fatalf("expected trade log %s, got %s", cfg.TradeLogPath, updated.TradeLogPath)
	}

	reopened, err := NewManager(WithConfigPath(path))
	if err != nil {
		t.Fatalf("reopen manager: %v", err)
	}
	if got := reopened.Get().BuyFraction; got != 0.25 {
		t.Fatalf("expected persisted buy fraction 0.25, got %v", got)
	}
}

func TestManagerRejectsInvalidUpdate(t *testing.T) {
	mgr, err := NewManager(WithConfigDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cfg := mgr.Get()
	cfg.SellFraction = -1
	if err := mgr.Update(cfg); err == nil {
		t.Fatalf("expected validation error for negative sell fraction")
	}
	if mgr.Get().SellFraction != consts.DefaultSellFraction {
		t.Fatalf("invalid update should not be applied")
	}
}

func TestManagerNeverPersistsSecrets(t *testing.T) {
	dir := t.TempDir()
	initial := defaults()
	initial.AlpacaAPIKey = "key-id"
	initial.AlpacaAPISecret = "super-secret"

	mgr, err := NewManager(WithConfigDir(dir), WithInitialConfig(initial))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	data, err := os.ReadFile(mgr.Path())
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if strings.Contains(string(data), "super-secret") || strings.Contains(string(data), "key-id") {
		t.Fatalf("credentials leaked into config file: %s", data)
	}
}

func TestManagerReload(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cfg := mgr.Get()
	cfg.Broker = consts.BrokerPaper
	if err := writeConfigFile(mgr.Path(), cfg); err != nil {
		t.Fatalf("writeConfigFile: %v", err)
	}
	if err := mgr.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if mgr.Get().Broker != consts.BrokerPaper {
		t.Fatalf("expected broker %q after reload, got %q", consts.BrokerPaper, mgr.Get().Broker)
	}
}
