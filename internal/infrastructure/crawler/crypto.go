package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trendwatch/internal/config"
	"trendwatch/internal/domain"
)

const binanceBaseURL = "https://api.binance.com/api/v3"

// CryptoFetcher turns a Binance 24h ticker into a single synthetic ranked
// title so price feeds flow through the same pipeline as news sources. The
// platform id is the trading symbol (e.g. BTCUSDT).
type CryptoFetcher struct {
	baseURL string
	client  *http.Client
}

var _ Fetcher = (*CryptoFetcher)(nil)

func NewCryptoFetcher(baseURL string, client *http.Client) *CryptoFetcher {
	if baseURL == "" {
		baseURL = binanceBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &CryptoFetcher{baseURL: baseURL, client: client}
}

func (c *CryptoFetcher) Kind() string { return "crypto" }

func (c *CryptoFetcher) Fetch(ctx context.Context, platform config.PlatformConfig) (map[string]domain.TitleRecord, error) {
	endpoint := fmt.Sprintf("%s/ticker/24hr?symbol=%s", c.baseURL, url.QueryEscape(platform.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request ticker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ticker api returned %s", resp.Status)
	}

	var payload struct {
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
		HighPrice          string `json:"highPrice"`
		LowPrice           string `json:"lowPrice"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode ticker: %w", err)
	}

	price, err := strconv.ParseFloat(payload.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("parse last price %q: %w", payload.LastPrice, err)
	}
	change, err := strconv.ParseFloat(payload.PriceChangePercent, 64)
	if err != nil {
		return nil, fmt.Errorf("parse change %q: %w", payload.PriceChangePercent, err)
	}

	title := fmt.Sprintf("%s $%.2f (%+.2f%% 24h)", platform.ID, price, change)
	return map[string]domain.TitleRecord{
		title: {Title: title, Ranks: []int{1}},
	}, nil
}
