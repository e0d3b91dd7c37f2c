package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/CortexTrader/consts"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// PromptForTickers prompts the user for a space or comma separated list of
// ticker symbols.
func PromptForTickers(defaults []string) ([]string, error) {
	var answer string
	prompt := &survey.Input{
		Message: "Enter the ticker symbols to trade (e.g., NU AAPL MSFT):",
		Help:    "Separate symbols with spaces or commas",
		Default: strings.Join(defaults, " "),
	}

	err := survey.AskOne(prompt, &answer, survey.WithValidator(func(val interface{}) error {
		tickers := splitTickers(val.(string))
		if len(tickers) == 0 {
			return fmt.Errorf("at least one ticker symbol is required")
		}
		for _, t := range tickers {
			if len(t) > 10 {
				return fmt.Errorf("ticker symbol %s too long (max 10 characters)", t)
			}
			if !tickerPattern.MatchString(t) {
				return fmt.Errorf("invalid ticker %s (use letters, numbers, dots, and hyphens only)", t)
			}
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	return splitTickers(answer), nil
}

// PromptForTradeDate prompts the user to enter the trade date
func PromptForTradeDate() (string, error) {
	var dateStr string
	prompt := &survey.Input{
		Message: "Enter the trade date (YYYY-MM-DD) or press Enter for today:",
		Help:    "Format: YYYY-MM-DD (e.g., 2024-01-15). The decision source is asked about this date.",
		Default: time.Now().Format(consts.DateLayout),
	}

	err := survey.AskOne(prompt, &dateStr, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		if str == "" {
			return nil
		}
		parsedDate, err := time.Parse(consts.DateLayout, str)
		if err != nil {
			return fmt.Errorf("invalid date format, use YYYY-MM-DD")
		}
		if parsedDate.After(time.Now().AddDate(0, 0, 1)) {
			return fmt.Errorf("trade date cannot be more than 1 day in the future")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(dateStr) == "" {
		return time.Now().Format(consts.DateLayout), nil
	}
	return strings.TrimSpace(dateStr), nil
}

// ConfirmLiveTrading asks before orders go to a real-money account.
func ConfirmLiveTrading(message string) (bool, error) {
	confirmed := false
	prompt := &survey.Confirm{
		Message: "⚠️  " + message,
		Help:    "Orders are sent to a live brokerage account. Pass --yes to skip this question.",
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}

func splitTickers(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToUpper(f))
	}
	return out
}
