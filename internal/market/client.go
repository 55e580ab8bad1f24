package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nepsetrack/portfolio-service/internal/models"
	"github.com/nepsetrack/portfolio-service/internal/portfolio"
)

// Client fetches the full NEPSE snapshot from the scraper's proxy endpoint.
// The feed is best-effort: fields may be missing and the endpoint may be
// down entirely, in which case callers keep serving the last known snapshot.
type Client struct {
	proxyURL   string
	httpClient *http.Client
}

// NewClient creates a snapshot client for the given proxy URL
func NewClient(proxyURL string) *Client {
	return &Client{
		proxyURL: proxyURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// wireQuote matches the proxy's JSON. Prices come back as numbers or
// strings depending on the scraper version; decimal accepts both.
type wireQuote struct {
	Name          string          `json:"name"`
	LTP           decimal.Decimal `json:"ltp"`
	PreviousClose decimal.Decimal `json:"previousClose"`
	PointChange   decimal.Decimal `json:"pointChange"`
	PercentChange decimal.Decimal `json:"percentChange"`
	Sector        string          `json:"sector"`
}

// FetchSnapshot pulls the current market snapshot, keyed by normalized symbol
func (c *Client) FetchSnapshot(ctx context.Context) (models.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.proxyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market feed returned status %d", resp.StatusCode)
	}

	var raw map[string]wireQuote
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode market feed: %w", err)
	}

	now := time.Now()
	snapshot := make(models.Snapshot, len(raw))
	for key, wq := range raw {
		symbol := portfolio.NormalizeSymbol(key)
		if symbol == "" {
			continue
		}
		snapshot[symbol] = models.Quote{
			Symbol:        symbol,
			Name:          wq.Name,
			LTP:           wq.LTP,
			PreviousClose: wq.PreviousClose,
			PointChange:   wq.PointChange,
			PercentChange: wq.PercentChange,
			Sector:        wq.Sector,
			AsOf:          now,
		}
	}
	return snapshot, nil
}
