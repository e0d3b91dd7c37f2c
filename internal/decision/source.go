package decision

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/dyike/CortexTrader/config"
)

// Source is the analysis engine boundary. It returns the analysis payload
// and the raw decision label for one ticker on one date.
type Source interface {
	Propagate(ctx context.Context, ticker, date string) (json.RawMessage, string, error)
}

var ErrNoSource = errors.New("no decision source configured: pass --decision, --decisions-file or --decision-url")

// NewFromConfig picks the first configured source: explicit overrides, then
// the decisions file, then the remote service.
func NewFromConfig(cfg *config.Config, overrides map[string]string) (Source, error) {
	if len(overrides) > 0 {
		return NewStaticSource(overrides), nil
	}
	if strings.TrimSpace(cfg.DecisionsFile) != "" {
		return LoadStaticSource(cfg.DecisionsFile)
	}
	if strings.TrimSpace(cfg.DecisionURL) != "" {
		return NewHTTPSource(cfg.DecisionURL, cfg.BrokerTimeout), nil
	}
	return nil, ErrNoSource
}
