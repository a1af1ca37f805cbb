package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"trendwatch/internal/config"
	"trendwatch/internal/domain"
)

const yahooChartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// StockFetcher turns a Yahoo Finance quote into a single synthetic ranked
// title, the same shape the crypto feed uses. The platform id is the ticker
// symbol (AAPL, 0700.HK, 000001.SS); the platform name is the display name.
type StockFetcher struct {
	baseURL string
	client  *http.Client
}

var _ Fetcher = (*StockFetcher)(nil)

func NewStockFetcher(baseURL string, client *http.Client) *StockFetcher {
	if baseURL == "" {
		baseURL = yahooChartBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &StockFetcher{baseURL: baseURL, client: client}
}

func (s *StockFetcher) Kind() string { return "stock" }

func (s *StockFetcher) Fetch(ctx context.Context, platform config.PlatformConfig) (map[string]domain.TitleRecord, error) {
	endpoint := fmt.Sprintf("%s/%s?interval=1d&range=1d", s.baseURL, url.PathEscape(platform.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote api returned %s", resp.Status)
	}

	var payload struct {
		Chart struct {
			Result []struct {
				Meta struct {
					RegularMarketPrice float64 `json:"regularMarketPrice"`
					ChartPreviousClose float64 `json:"chartPreviousClose"`
				} `json:"meta"`
			} `json:"result"`
			Error *struct {
				Description string `json:"description"`
			} `json:"error"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("quote api: %s", payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("quote api returned no result for %s", platform.ID)
	}

	meta := payload.Chart.Result[0].Meta
	if meta.RegularMarketPrice == 0 {
		return nil, fmt.Errorf("no market price for %s (market may be closed)", platform.ID)
	}

	change := 0.0
	if meta.ChartPreviousClose > 0 {
		change = (meta.RegularMarketPrice - meta.ChartPreviousClose) / meta.ChartPreviousClose * 100
	}

	name := platform.Name
	if name == "" {
		name = platform.ID
	}
	title := fmt.Sprintf("%s(%s) %.2f (%+.2f%%)", name, platform.ID, meta.RegularMarketPrice, change)
	return map[string]domain.TitleRecord{
		title: {Title: title, Ranks: []int{1}},
	}, nil
}
