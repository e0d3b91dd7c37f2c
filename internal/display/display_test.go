package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexTrader/models"
)

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, Summary{
		Date:      "2024-05-01",
		Broker:    "paper",
		StartCash: decimal.NewFromInt(1000),
		EndCash:   decimal.NullDecimal{Decimal: decimal.NewFromInt(900), Valid: true},
		Rows: []Row{
			{Ticker: "NU", Decision: "BUY", Result: "bought", Notional: "100.00"},
			{Ticker: "AAPL", Decision: "SELL", Result: "failed", Detail: "market closed"},
		},
		Submitted: 1,
		Failed:    1,
	})

	out := buf.String()
	for _, want := range []string{"NU", "AAPL", "market closed", "1000.00", "900.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRenderHistory(t *testing.T) {
	var buf bytes.Buffer
	RenderHistory(&buf, nil)
	if !strings.Contains(buf.String(), "no trades") {
		t.Fatalf("expected empty marker, got %q", buf.String())
	}

	buf.Reset()
	RenderHistory(&buf, []models.TradeLogRecord{{
		Timestamp:   time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC),
		Date:        "2024-05-01",
		Ticker:      "NU",
		Action:      models.LogError,
		NotionalUSD: decimal.Zero,
		AnalysisStr: "insufficient buying power",
	}})
	if !strings.Contains(buf.String(), "insufficient buying power") {
		t.Fatalf("error detail not shown: %s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("a  b\nc", 10); got != "a b c" {
		t.Fatalf("truncate collapsed whitespace wrong: %q", got)
	}
	if got := truncate(strings.Repeat("x", 20), 5); len([]rune(got)) != 5 {
		t.Fatalf("expected 5 runes, got %q", got)
	}
}
