package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/CortexTrader/config"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true).
			Align(lipgloss.Center).
			Width(72).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)

	liveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	paperStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))
)

// DisplayWelcomeBanner shows the welcome banner
func DisplayWelcomeBanner(w io.Writer) {
	fmt.Fprintln(w, bannerStyle.Render("📈 CortexTrader\nDecision-to-Order Execution"))
}

// DisplayRunHeader shows what is about to be traded and where.
func DisplayRunHeader(w io.Writer, cfg *config.Config, tickers []string, date, runID string) {
	account := paperStyle.Render("paper")
	if !cfg.IsPaper() {
		account = liveStyle.Render("LIVE")
	}

	lines := []string{
		fmt.Sprintf("🚀 Trading %s on %s", strings.Join(tickers, ", "), date),
		fmt.Sprintf("🏦 Broker: %s (%s)", cfg.Broker, account),
		fmt.Sprintf("📐 Sizing: %s, buy %.2f of cash, sell %.2f of position", cfg.SizingMode, cfg.BuyFraction, cfg.SellFraction),
		fmt.Sprintf("🆔 Run: %s", runID),
	}
	fmt.Fprintln(w, headerStyle.Render(strings.Join(lines, "\n")))
}
