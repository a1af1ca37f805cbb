package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trendwatch/internal/config"
	"trendwatch/internal/domain"
)

const defaultBoardSelector = "li a"

// BoardFetcher scrapes a ranked list straight from an HTML page for
// platforms the aggregation API does not cover. The CSS selector for list
// entries is configurable per platform via options.selector.
type BoardFetcher struct {
	client *http.Client
}

var _ Fetcher = (*BoardFetcher)(nil)

func NewBoardFetcher(client *http.Client) *BoardFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &BoardFetcher{client: client}
}

func (b *BoardFetcher) Kind() string { return "board" }

func (b *BoardFetcher) Fetch(ctx context.Context, platform config.PlatformConfig) (map[string]domain.TitleRecord, error) {
	if platform.URL == "" {
		return nil, fmt.Errorf("board platform %s has no url", platform.ID)
	}

	doc, err := b.fetchDocument(ctx, platform.URL)
	if err != nil {
		return nil, err
	}

	selector := platform.Options["selector"]
	if selector == "" {
		selector = defaultBoardSelector
	}

	base, err := url.Parse(platform.URL)
	if err != nil {
		return nil, fmt.Errorf("parse board url: %w", err)
	}

	titles := map[string]domain.TitleRecord{}
	rank := 0
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			return
		}
		rank++

		link := ""
		if href, ok := sel.Attr("href"); ok {
			if parsed, err := url.Parse(href); err == nil {
				link = base.ResolveReference(parsed).String()
			}
		}

		rec, ok := titles[title]
		if !ok {
			rec = domain.TitleRecord{Title: title, URL: link}
		}
		rec.Ranks = append(rec.Ranks, rank)
		titles[title] = rec
	})

	if len(titles) == 0 {
		return nil, fmt.Errorf("board %s yielded no entries for selector %q", platform.ID, selector)
	}

	return titles, nil
}

func (b *BoardFetcher) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request board: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("board returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse board document: %w", err)
	}
	return doc, nil
}
