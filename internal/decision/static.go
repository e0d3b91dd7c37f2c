package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dyike/CortexTrader/models"
)

// StaticEntry is one ticker in a decisions file. It may be written as a
// bare label (AAPL: BUY) or as a mapping with an analysis payload.
type StaticEntry struct {
	Decision string         `yaml:"decision"`
	Analysis map[string]any `yaml:"analysis"`
}

func (e *StaticEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Decision = node.Value
		return nil
	}
	type plain StaticEntry
	return node.Decode((*plain)(e))
}

// StaticSource serves decisions from a fixed table. Tickers not in the
// table are HOLD.
type StaticSource struct {
	entries map[string]StaticEntry
}

func NewStaticSource(decisions map[string]string) *StaticSource {
	entries := make(map[string]StaticEntry, len(decisions))
	for ticker, label := range decisions {
		entries[normalize(ticker)] = StaticEntry{Decision: label}
	}
	return &StaticSource{entries: entries}
}

// LoadStaticSource reads a YAML or JSON decisions file keyed by ticker.
func LoadStaticSource(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read decisions file: %w", err)
	}

	var raw map[string]StaticEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse decisions file %s: %w", path, err)
	}

	entries := make(map[string]StaticEntry, len(raw))
	for ticker, entry := range raw {
		entries[normalize(ticker)] = entry
	}
	return &StaticSource{entries: entries}, nil
}

func (s *StaticSource) Tickers() []string {
	out := make([]string, 0, len(s.entries))
	for t := range s.entries {
		out = append(out, t)
	}
	return out
}

func (s *StaticSource) Propagate(ctx context.Context, ticker, date string) (json.RawMessage, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	entry, ok := s.entries[normalize(ticker)]
	if !ok {
		entry = StaticEntry{Decision: string(models.ActionHold)}
	}

	analysis := map[string]any{
		"source": "static",
		"ticker": normalize(ticker),
		"date":   date,
	}
	for k, v := range entry.Analysis {
		analysis[k] = v
	}
	payload, err := json.Marshal(analysis)
	if err != nil {
		return nil, "", fmt.Errorf("encode analysis for %s: %w", ticker, err)
	}
	return payload, entry.Decision, nil
}

func normalize(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
