package audit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexTrader/models"
)

const header = "timestamp,date,ticker,action,qty,notional_usd,decision,analysis_str"

func buyRecord() models.TradeLogRecord {
	return models.TradeLogRecord{
		Timestamp:   time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC),
		Date:        "2024-05-01",
		Ticker:      "NU",
		Action:      models.LogBuy,
		NotionalUSD: decimal.NewFromInt(100),
		Decision:    "BUY",
		AnalysisStr: `{"summary":"strong, \"quoted\" growth"}`,
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestCSVLoggerWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades", "trade_history.csv")
	logger, err := NewCSVLogger(path)
	if err != nil {
		t.Fatalf("NewCSVLogger: %v", err)
	}

	ctx := context.Background()
	if err := logger.Append(ctx, buyRecord()); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := logger.Append(ctx, models.NewErrorRecord(time.Now(), "2024-05-01", "AAPL", "SELL", errors.New("market closed"))); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// A new logger on the same path simulates a restart.
	restarted, _ := NewCSVLogger(path)
	if err := restarted.Append(ctx, buyRecord()); err != nil {
		t.Fatalf("Append after restart: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if lines[0] != header {
		t.Fatalf("unexpected header %q", lines[0])
	}
	for _, l := range lines[1:] {
		if l == header {
			t.Fatalf("header duplicated")
		}
	}
}

func TestCSVLoggerKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade_history.csv")
	existing := header + "\n2024-04-30T10:00:00Z,2024-04-30,NU,BUY,,50,BUY,{}\n"
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	logger, _ := NewCSVLogger(path)
	if err := logger.Append(context.Background(), buyRecord()); err != nil {
		t.Fatalf("Append: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(string(mustRead(t, path)), existing) {
		t.Fatalf("existing rows were modified")
	}
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return data
}

func TestCSVLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade_history.csv")
	logger, _ := NewCSVLogger(path)
	ctx := context.Background()

	sell := buyRecord()
	sell.Action = models.LogSell
	sell.Qty = decimal.NullDecimal{Decimal: decimal.NewFromInt(50), Valid: true}
	sell.NotionalUSD = decimal.NewFromInt(600)

	for _, rec := range []models.TradeLogRecord{buyRecord(), sell} {
		if err := logger.Append(ctx, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	records, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Qty.Valid {
		t.Fatalf("notional BUY should have an empty qty")
	}
	if records[0].AnalysisStr != buyRecord().AnalysisStr {
		t.Fatalf("analysis not preserved: %q", records[0].AnalysisStr)
	}
	if !records[1].Qty.Decimal.Equal(decimal.NewFromInt(50)) || records[1].Action != models.LogSell {
		t.Fatalf("unexpected sell record %+v", records[1])
	}
	if !records[0].Timestamp.Equal(buyRecord().Timestamp) {
		t.Fatalf("timestamp not preserved")
	}
}

func TestCSVLoggerConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade_history.csv")
	logger, _ := NewCSVLogger(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := logger.Append(context.Background(), buyRecord()); err != nil {
				t.Errorf("Append: %v", err)
			}
		}()
	}
	wg.Wait()

	records, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(records) != 20 {
		t.Fatalf("expected 20 records, got %d", len(records))
	}
}

func TestCSVLoggerUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewCSVLogger(filepath.Join(blocker, "trade_history.csv")); err == nil {
		t.Fatalf("expected error when the parent is a file")
	}
}

type memLogger struct {
	records []models.TradeLogRecord
	err     error
}

func (m *memLogger) Append(_ context.Context, rec models.TradeLogRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memLogger) Close() error { return m.err }

func TestTee(t *testing.T) {
	good := &memLogger{}
	bad := &memLogger{err: errors.New("disk full")}
	logger := Tee(good, nil, bad)

	err := logger.Append(context.Background(), buyRecord())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected combined error, got %v", err)
	}
	if len(good.records) != 1 {
		t.Fatalf("healthy sink should still receive the record")
	}
	if err := logger.Close(); err == nil {
		t.Fatalf("expected close error")
	}

	if single := Tee(good); single != Logger(good) {
		t.Fatalf("single sink should not be wrapped")
	}
}
