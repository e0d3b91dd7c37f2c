package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type propagateRequest struct {
	Ticker string `json:"ticker"`
	Date   string `json:"date"`
}

type propagateResponse struct {
	Decision string          `json:"decision"`
	Analysis json.RawMessage `json:"analysis"`
}

// HTTPSource asks a remote analysis service for decisions.
type HTTPSource struct {
	client *resty.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	return &HTTPSource{client: client}
}

func (s *HTTPSource) Propagate(ctx context.Context, ticker, date string) (json.RawMessage, string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(propagateRequest{Ticker: ticker, Date: date}).
		Post("/propagate")
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch decision for %s: %w", ticker, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, "", fmt.Errorf("decision service error %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	var out propagateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, "", fmt.Errorf("failed to parse decision response: %w", err)
	}
	return out.Analysis, out.Decision, nil
}
