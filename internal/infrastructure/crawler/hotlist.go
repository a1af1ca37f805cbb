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

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// HotlistFetcher pulls a platform's ranked titles from the aggregation API.
// Rank is the item's position in the returned list, starting at 1.
type HotlistFetcher struct {
	baseURL string
	client  *http.Client
}

var _ Fetcher = (*HotlistFetcher)(nil)

// NewHotlistFetcher wires the API base URL; client defaults to a 10s timeout.
func NewHotlistFetcher(baseURL string, client *http.Client) *HotlistFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HotlistFetcher{baseURL: baseURL, client: client}
}

func (h *HotlistFetcher) Kind() string { return "hotlist" }

func (h *HotlistFetcher) Fetch(ctx context.Context, platform config.PlatformConfig) (map[string]domain.TitleRecord, error) {
	endpoint := fmt.Sprintf("%s/s?id=%s&latest", h.baseURL, url.QueryEscape(platform.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request hotlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hotlist api returned %s", resp.Status)
	}

	var payload struct {
		Status string `json:"status"`
		Items  []struct {
			Title     string `json:"title"`
			URL       string `json:"url"`
			MobileURL string `json:"mobileUrl"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode hotlist: %w", err)
	}
	if payload.Status != "success" && payload.Status != "cache" {
		return nil, fmt.Errorf("hotlist api status %q", payload.Status)
	}

	titles := make(map[string]domain.TitleRecord, len(payload.Items))
	for i, item := range payload.Items {
		if item.Title == "" {
			continue
		}
		rec, ok := titles[item.Title]
		if !ok {
			rec = domain.TitleRecord{
				Title:     item.Title,
				URL:       item.URL,
				MobileURL: item.MobileURL,
			}
		}
		rec.Ranks = append(rec.Ranks, i+1)
		titles[item.Title] = rec
	}

	return titles, nil
}
