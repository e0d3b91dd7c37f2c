package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Action is the normalized trading decision for a ticker.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// ParseAction normalizes a free-text decision label. Only BUY and SELL are
// actionable; every other value, including an empty one, is a HOLD.
func ParseAction(label string) Action {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case string(ActionBuy):
		return ActionBuy
	case string(ActionSell):
		return ActionSell
	default:
		return ActionHold
	}
}

// Actionable reports whether the action can result in an order.
func (a Action) Actionable() bool {
	return a == ActionBuy || a == ActionSell
}

func (a Action) String() string {
	return string(a)
}

// Decision is what the analysis engine produced for one ticker on one date.
// Analysis is kept as already-serialized JSON; its shape belongs to the
// decision source.
type Decision struct {
	Ticker   string          `json:"ticker"`
	Date     string          `json:"date"`
	Action   Action          `json:"action"`
	Label    string          `json:"label"`
	Analysis json.RawMessage `json:"analysis,omitempty"`
}

// NewDecision builds a Decision from the raw label returned by a decision source.
func NewDecision(ticker, date, label string, analysis json.RawMessage) Decision {
	return Decision{
		Ticker:   ticker,
		Date:     date,
		Action:   ParseAction(label),
		Label:    strings.ToUpper(strings.TrimSpace(label)),
		Analysis: analysis,
	}
}

// AnalysisString renders the analysis payload as a compact single-line string
// suitable for the audit log.
func (d Decision) AnalysisString() string {
	if len(d.Analysis) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, d.Analysis); err != nil {
		return string(d.Analysis)
	}
	return buf.String()
}
