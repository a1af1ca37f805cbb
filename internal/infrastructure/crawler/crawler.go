// Package crawler fetches ranked titles from every configured source once
// per cycle. Fetch strategies are registered per platform kind.
package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"trendwatch/internal/config"
	"trendwatch/internal/domain"
	"trendwatch/internal/ports"
)

// NewHTTPClient builds the shared fetch client, optionally routed through
// the configured proxy. A malformed proxy URL falls back to a direct client.
func NewHTTPClient(cfg config.CrawlerConfig, log zerolog.Logger) *http.Client {
	client := &http.Client{Timeout: 10 * time.Second}
	if !cfg.UseProxy || cfg.ProxyURL == "" {
		return client
	}

	proxy, err := url.Parse(cfg.ProxyURL)
	if err != nil {
		log.Warn().Err(err).Str("proxy", cfg.ProxyURL).Msg("invalid proxy url, fetching directly")
		return client
	}
	client.Transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	return client
}

// Fetcher is one fetch strategy for a platform kind (hotlist, board, crypto).
type Fetcher interface {
	Kind() string
	Fetch(ctx context.Context, platform config.PlatformConfig) (map[string]domain.TitleRecord, error)
}

// Registry keeps a mapping from platform kinds to their fetch strategies.
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: map[string]Fetcher{}}
}

// Register adds or replaces a fetch strategy.
func (r *Registry) Register(f Fetcher) {
	if r.fetchers == nil {
		r.fetchers = map[string]Fetcher{}
	}
	r.fetchers[f.Kind()] = f
}

// Resolve returns a fetcher by kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (Fetcher, error) {
	if f, ok := r.fetchers[kind]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("fetcher %s is not registered", kind)
}

// Crawler iterates over configured platforms with a minimum spacing between
// requests. Per-source failures are collected into FailedIDs and never
// abort the cycle.
type Crawler struct {
	registry  *Registry
	platforms []config.PlatformConfig
	limiter   *rate.Limiter
	log       zerolog.Logger
}

var _ ports.CycleSource = (*Crawler)(nil)

// New wires the registry with config-defined platforms; interval is the
// minimum spacing between consecutive source fetches.
func New(reg *Registry, platforms []config.PlatformConfig, interval time.Duration, log zerolog.Logger) *Crawler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Crawler{
		registry:  reg,
		platforms: platforms,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		log:       log,
	}
}

// FetchCycle crawls every platform once and aggregates the snapshot.
func (c *Crawler) FetchCycle(ctx context.Context, now time.Time) (domain.CrawlSnapshot, error) {
	snap := domain.CrawlSnapshot{
		Results:   domain.TitlesBySource{},
		IDToName:  map[string]string{},
		FetchedAt: now,
	}
	if c.registry == nil {
		return snap, fmt.Errorf("fetcher registry is not configured")
	}

	for _, platform := range c.platforms {
		if err := c.limiter.Wait(ctx); err != nil {
			return snap, fmt.Errorf("rate limit wait: %w", err)
		}

		kind := platform.Kind
		if kind == "" {
			kind = "hotlist"
		}
		fetcher, err := c.registry.Resolve(kind)
		if err != nil {
			c.log.Warn().Err(err).Str("source", platform.ID).Msg("source skipped")
			snap.FailedIDs = append(snap.FailedIDs, platform.ID)
			continue
		}

		titles, err := fetcher.Fetch(ctx, platform)
		if err != nil {
			c.log.Warn().Err(err).Str("source", platform.ID).Str("kind", kind).Msg("source fetch failed")
			snap.FailedIDs = append(snap.FailedIDs, platform.ID)
			continue
		}

		for title, rec := range titles {
			rec.SourceID = platform.ID
			rec.FirstSeen = now
			rec.LastSeen = now
			if rec.Count == 0 {
				rec.Count = 1
			}
			titles[title] = rec
		}

		snap.Results[platform.ID] = titles
		name := platform.Name
		if name == "" {
			name = platform.ID
		}
		snap.IDToName[platform.ID] = name
		c.log.Debug().Str("source", platform.ID).Int("titles", len(titles)).Msg("source fetched")
	}

	return snap, nil
}
