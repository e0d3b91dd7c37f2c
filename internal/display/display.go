package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/dyike/CortexTrader/models"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(0, 1)

	buyStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	sellStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	mutedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))
)

// Row is one line of the run summary table.
type Row struct {
	Ticker   string
	Decision string
	Result   string
	Qty      string
	Notional string
	Detail   string
}

// Summary is what a run reports to the user.
type Summary struct {
	Date      string
	Broker    string
	StartCash decimal.Decimal
	EndCash   decimal.NullDecimal
	Rows      []Row
	TradeLog  string
	Submitted int
	Skipped   int
	Failed    int
}

// RenderSummary writes the run summary panel to w.
func RenderSummary(w io.Writer, s Summary) {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("📈 Execution summary for %s (%s)", s.Date, s.Broker)))
	b.WriteString("\n\n")

	header := fmt.Sprintf("%-8s %-8s %-10s %12s %14s  %s", "TICKER", "DECISION", "RESULT", "QTY", "NOTIONAL", "DETAIL")
	b.WriteString(mutedStyle.Render(header))
	b.WriteString("\n")
	for _, r := range s.Rows {
		line := fmt.Sprintf("%-8s %-8s %-10s %12s %14s  %s", r.Ticker, r.Decision, r.Result, r.Qty, r.Notional, truncate(r.Detail, 48))
		b.WriteString(styleFor(r.Result).Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("💵 Starting cash: $%s\n", s.StartCash.StringFixed(2)))
	if s.EndCash.Valid {
		b.WriteString(fmt.Sprintf("💵 Ending cash:   $%s\n", s.EndCash.Decimal.StringFixed(2)))
	}
	b.WriteString(fmt.Sprintf("✅ Submitted: %d   ⏭️  Skipped: %d   ❌ Failed: %d\n", s.Submitted, s.Skipped, s.Failed))
	if s.TradeLog != "" {
		b.WriteString(fmt.Sprintf("📄 Trade log: %s", s.TradeLog))
	}

	fmt.Fprintln(w, panelStyle.Render(b.String()))
}

// RenderHistory writes audit records as a plain table.
func RenderHistory(w io.Writer, records []models.TradeLogRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("(no trades recorded)"))
		return
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%-20s %-10s %-8s %-6s %12s %14s  %s", "TIMESTAMP", "DATE", "TICKER", "ACTION", "QTY", "NOTIONAL", "DETAIL")))
	for _, r := range records {
		qty := ""
		if r.Qty.Valid {
			qty = r.Qty.Decimal.String()
		}
		detail := r.Decision
		if r.Action == models.LogError {
			detail = r.AnalysisStr
		}
		line := fmt.Sprintf("%-20s %-10s %-8s %-6s %12s %14s  %s",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.Date, r.Ticker, r.Action, qty, r.NotionalUSD.StringFixed(2), truncate(detail, 48))
		fmt.Fprintln(w, styleFor(string(r.Action)).Render(line))
	}
}

func styleFor(result string) lipgloss.Style {
	switch strings.ToUpper(result) {
	case "BUY", "BOUGHT":
		return buyStyle
	case "SELL", "SOLD":
		return sellStyle
	case "ERROR", "FAILED":
		return errorStyle
	default:
		return mutedStyle
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

// DisplayError shows formatted error messages
func DisplayError(err error, context string) {
	fmt.Fprintf(os.Stderr, "❌ Error in %s:\n", context)
	fmt.Fprintf(os.Stderr, "   %v\n", err)
}

// DisplayWarning shows formatted warning messages
func DisplayWarning(message string) {
	fmt.Printf("⚠️  Warning: %s\n", message)
}

// DisplaySuccess shows formatted success messages
func DisplaySuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// DisplayInfo shows formatted info messages
func DisplayInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}
