// Package app wires configuration to the monitoring pipeline and owns the
// process lifecycle.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"trendwatch/internal/classify"
	"trendwatch/internal/config"
	"trendwatch/internal/infrastructure/crawler"
	"trendwatch/internal/infrastructure/llm"
	"trendwatch/internal/infrastructure/render"
	"trendwatch/internal/infrastructure/scheduler"
	"trendwatch/internal/infrastructure/storage"
	"trendwatch/internal/notify"
	"trendwatch/internal/notify/channels"
	"trendwatch/internal/ports"
	"trendwatch/internal/push"
	"trendwatch/internal/report"
	"trendwatch/internal/usecase"
)

// Application wires config to the orchestrator and drives it either once or
// on a cron schedule.
type Application struct {
	cfg          config.Config
	log          zerolog.Logger
	store        *storage.SQLiteStore
	orchestrator *usecase.Orchestrator
}

// New builds a runnable application. The returned instance owns the SQLite
// store; call Close when done.
func New(cfg config.Config, log zerolog.Logger) (*Application, error) {
	store, err := storage.Open(cfg.Storage.Path, log.With().Str("component", "storage").Logger())
	if err != nil {
		return nil, fmt.Errorf("open title store: %w", err)
	}

	fetchClient := crawler.NewHTTPClient(cfg.Crawler, log.With().Str("component", "crawler").Logger())

	registry := crawler.NewRegistry()
	registry.Register(crawler.NewHotlistFetcher(cfg.Crawler.APIBaseURL, fetchClient))
	registry.Register(crawler.NewBoardFetcher(fetchClient))
	registry.Register(crawler.NewCryptoFetcher("", fetchClient))
	registry.Register(crawler.NewStockFetcher("", fetchClient))
	registry.Register(crawler.NewTwitterFetcher(nil, fetchClient))

	platforms := cfg.Platforms
	if cfg.Crypto.Enabled {
		for _, symbol := range cfg.Crypto.Symbols {
			platforms = append(platforms, config.PlatformConfig{ID: symbol, Name: symbol, Kind: "crypto"})
		}
	}

	source := crawler.New(registry, platforms, cfg.Crawler.RequestInterval(),
		log.With().Str("component", "crawler").Logger())

	classifier := classify.NewFrequencyCounter(cfg.Keywords)

	dispatcher := notify.NewDispatcher(
		channels.FromConfig(cfg.Notifications, log.With().Str("component", "channels").Logger()),
		log.With().Str("component", "dispatcher").Logger())

	governor := push.NewGovernor(store, cfg.App.Location(),
		log.With().Str("component", "governor").Logger())

	var analyzer ports.Analyzer
	if cfg.AI.Enabled && cfg.AI.APIKey != "" {
		analyzer = llm.NewClaudeAnalyzer(cfg.AI.APIKey, cfg.AI.Model)
	}

	var renderer ports.Renderer
	if cfg.Storage.SaveHTML {
		htmlRenderer, err := render.NewHTMLRenderer(cfg.Storage.OutputDir)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("build renderer: %w", err)
		}
		renderer = htmlRenderer
	}

	strategy := report.StrategyFor(cfg.App.ReportMode, log)
	log.Info().Str("mode", string(strategy.Mode)).Msg(strategy.Description)

	orchestrator := usecase.NewOrchestrator(usecase.Deps{
		Source:             source,
		History:            store,
		Classifier:         classifier,
		Governor:           governor,
		Dispatcher:         dispatcher,
		Renderer:           renderer,
		Analyzer:           analyzer,
		Viewer:             render.OpenInBrowser,
		Strategy:           strategy,
		SourceIDs:          cfg.MonitoredIDs(),
		Window:             cfg.PushWindow,
		EnableNotification: cfg.App.EnableNotification,
		RetentionDays:      cfg.Storage.RetentionDays,
		SaveHTML:           cfg.Storage.SaveHTML,
		Headless:           config.Headless(),
		Location:           cfg.App.Location(),
		Log:                log.With().Str("component", "orchestrator").Logger(),
	})

	return &Application{cfg: cfg, log: log, store: store, orchestrator: orchestrator}, nil
}

// Run executes one cycle, or keeps cycling on the configured cron schedule
// until the process is signalled.
func (a *Application) Run(ctx context.Context) error {
	if !a.cfg.App.EnableCrawler {
		a.log.Info().Msg("crawler disabled, nothing to do")
		return nil
	}

	if a.cfg.Scheduler.CronExpression == "" {
		return a.orchestrator.RunCycle(ctx, time.Now())
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cron := scheduler.NewCron(a.cfg.Scheduler.CronExpression, a.cfg.App.Location(),
		a.log.With().Str("component", "scheduler").Logger())
	err := cron.Start(ctx, func(now time.Time) {
		if err := a.orchestrator.RunCycle(ctx, now); err != nil {
			a.log.Error().Err(err).Msg("cycle failed")
		}
	})
	if err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return cron.Stop(stopCtx)
}

// Close releases the application's resources.
func (a *Application) Close() error {
	return a.store.Close()
}
