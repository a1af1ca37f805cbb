package ports

import (
	"context"
	"time"

	"trendwatch/internal/domain"
)

// CycleSource crawls every configured feed once and aggregates the results.
type CycleSource interface {
	FetchCycle(ctx context.Context, now time.Time) (domain.CrawlSnapshot, error)
}

// TitleHistory persists and re-reads a day's accumulated titles. Reads are
// always filtered to the given source ids so that sources removed from
// configuration stop contributing data, including stale "new" titles.
type TitleHistory interface {
	SaveSnapshot(ctx context.Context, snap domain.CrawlSnapshot) error
	ReadDay(ctx context.Context, day time.Time, sourceIDs []string) (domain.TitlesBySource, map[string]string, error)
	NewTitles(ctx context.Context, day time.Time, sourceIDs []string) (domain.NewTitleSet, error)
	Cleanup(ctx context.Context, before time.Time) error
}

// PushStateStore loads and saves the durable push-window state for one
// calendar date. Load returns an empty state when nothing was recorded yet.
type PushStateStore interface {
	Load(ctx context.Context, date string) (domain.PushWindowState, error)
	Save(ctx context.Context, state domain.PushWindowState) error
}

// PushGovernor enforces the time-of-day window and once-per-day throttle.
type PushGovernor interface {
	HasPushedToday(ctx context.Context, now time.Time) (bool, error)
	RecordPush(ctx context.Context, now time.Time, reportType string) error
}

// Classifier computes keyword-group match statistics over a set of titles
// and returns the total number of titles considered.
type Classifier interface {
	Count(titles domain.TitlesBySource, newTitles domain.NewTitleSet, idToName map[string]string) ([]domain.MatchStat, int)
}

// Channel delivers a prepared report to one notification provider.
type Channel interface {
	Name() string
	Send(ctx context.Context, report domain.ReportData, reportType string) error
}

// Dispatcher fans a report out to every configured channel.
type Dispatcher interface {
	Configured() bool
	DispatchAll(ctx context.Context, report domain.ReportData, reportType string) domain.DispatchOutcome
}

// Renderer produces the digest artifact for a report and returns its path.
type Renderer interface {
	RenderHTML(report domain.ReportData, reportType string) (string, error)
}

// Analyzer produces an optional AI trend analysis for a report.
type Analyzer interface {
	Analyze(ctx context.Context, report domain.ReportData) (string, error)
}

// Scheduler controls when cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
