package crawler

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"trendwatch/internal/config"
	"trendwatch/internal/domain"
)

// Public Nitter instances, tried in order until one answers.
var defaultNitterInstances = []string{
	"https://nitter.net",
	"https://nitter.privacydev.net",
	"https://nitter.poast.org",
}

const (
	defaultTweetLimit = 5
	maxTweetTitleLen  = 100
)

// TwitterFetcher pulls a user's recent tweets through Nitter RSS, so no API
// key is needed. The platform id is the username; options.instance pins a
// single Nitter instance, options.limit caps the tweet count.
type TwitterFetcher struct {
	instances []string
	client    *http.Client
}

var _ Fetcher = (*TwitterFetcher)(nil)

func NewTwitterFetcher(instances []string, client *http.Client) *TwitterFetcher {
	if len(instances) == 0 {
		instances = defaultNitterInstances
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TwitterFetcher{instances: instances, client: client}
}

func (t *TwitterFetcher) Kind() string { return "twitter" }

type rssFeed struct {
	Channel struct {
		Items []struct {
			Title string `xml:"title"`
			Link  string `xml:"link"`
		} `xml:"item"`
	} `xml:"channel"`
}

func (t *TwitterFetcher) Fetch(ctx context.Context, platform config.PlatformConfig) (map[string]domain.TitleRecord, error) {
	instances := t.instances
	if pinned := platform.Options["instance"]; pinned != "" {
		instances = []string{pinned}
	}
	limit := defaultTweetLimit
	if raw := platform.Options["limit"]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	var lastErr error
	for _, instance := range instances {
		titles, err := t.fetchFromInstance(ctx, instance, platform.ID, limit)
		if err != nil {
			lastErr = err
			continue
		}
		return titles, nil
	}
	return nil, fmt.Errorf("every nitter instance failed for @%s: %w", platform.ID, lastErr)
}

func (t *TwitterFetcher) fetchFromInstance(ctx context.Context, instance, username string, limit int) (map[string]domain.TitleRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, instance+"/"+username+"/rss", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request rss: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss returned %s", resp.Status)
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parse rss: %w", err)
	}
	if len(feed.Channel.Items) == 0 {
		return nil, fmt.Errorf("rss feed for @%s is empty", username)
	}

	titles := make(map[string]domain.TitleRecord, limit)
	for i, item := range feed.Channel.Items {
		if i >= limit {
			break
		}
		title := truncateRunes(item.Title, maxTweetTitleLen)
		if title == "" {
			continue
		}
		rec, ok := titles[title]
		if !ok {
			rec = domain.TitleRecord{Title: title, URL: item.Link}
		}
		rec.Ranks = append(rec.Ranks, i+1)
		titles[title] = rec
	}
	return titles, nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
