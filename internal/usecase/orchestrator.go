// Package usecase coordinates one full monitoring cycle: crawl, persist,
// classify, and notify under the configured report strategy.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"trendwatch/internal/config"
	"trendwatch/internal/domain"
	"trendwatch/internal/ports"
	"trendwatch/internal/push"
	"trendwatch/internal/report"
)

// ErrHistoryConsistency is returned when titles saved this cycle cannot be
// read back. Current-mode reports are rebuilt entirely from history, so a
// silent read-back failure would push an empty report; failing the cycle is
// the only safe response.
var ErrHistoryConsistency = errors.New("persisted titles could not be read back")

// Deps lists everything an Orchestrator needs. Renderer and Analyzer are
// optional; all other fields are required.
type Deps struct {
	Source     ports.CycleSource
	History    ports.TitleHistory
	Classifier ports.Classifier
	Governor   ports.PushGovernor
	Dispatcher ports.Dispatcher
	Renderer   ports.Renderer
	Analyzer   ports.Analyzer
	Viewer     func(path string) error

	Strategy           report.Strategy
	SourceIDs          []string
	Window             config.PushWindowConfig
	EnableNotification bool
	RetentionDays      int
	SaveHTML           bool
	Headless           bool
	Location           *time.Location

	Log zerolog.Logger
}

// Orchestrator runs monitoring cycles. The strategy is fixed for the
// lifetime of the process; at most one push leaves a single cycle.
type Orchestrator struct {
	deps Deps
	loc  *time.Location
}

func NewOrchestrator(deps Deps) *Orchestrator {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	return &Orchestrator{deps: deps, loc: loc}
}

// RunCycle executes one crawl-to-notify cycle anchored at now.
func (o *Orchestrator) RunCycle(ctx context.Context, now time.Time) error {
	now = now.In(o.loc)
	log := o.deps.Log.With().Str("mode", string(o.deps.Strategy.Mode)).Logger()
	log.Info().Time("at", now).Msg("cycle started")

	snap, err := o.deps.Source.FetchCycle(ctx, now)
	if err != nil {
		return fmt.Errorf("fetch cycle: %w", err)
	}
	if len(snap.FailedIDs) > 0 {
		log.Warn().Strs("failed", snap.FailedIDs).Msg("some sources failed this cycle")
	}

	if err := o.deps.History.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	newTitles, err := o.deps.History.NewTitles(ctx, now, o.deps.SourceIDs)
	if err != nil {
		return fmt.Errorf("detect new titles: %w", err)
	}

	allTitles, idToName, err := o.deps.History.ReadDay(ctx, now, o.deps.SourceIDs)
	if err != nil {
		return fmt.Errorf("read day history: %w", err)
	}
	if o.deps.Strategy.Mode == domain.ModeCurrent && len(allTitles) == 0 && len(snap.Results) > 0 {
		return fmt.Errorf("%w: saved %d sources, read back none", ErrHistoryConsistency, len(snap.Results))
	}
	for id, name := range snap.IDToName {
		if _, ok := idToName[id]; !ok {
			idToName[id] = name
		}
	}

	stats, total := o.deps.Classifier.Count(allTitles, newTitles, idToName)
	base := domain.ReportData{
		Mode:        o.deps.Strategy.Mode,
		Stats:       stats,
		TotalTitles: total,
		FailedIDs:   snap.FailedIDs,
		NewTitles:   newTitles,
		IDToName:    idToName,
		GeneratedAt: now,
	}

	if o.deps.Strategy.SendRealtime {
		realtime := base
		if o.deps.Strategy.Mode == domain.ModeIncremental {
			realtime.Stats = filterToNew(stats)
		}
		o.renderArtifact(realtime, o.deps.Strategy.RealtimeReportType, log)
		if _, err := o.pushIfEligible(ctx, realtime, o.deps.Strategy.RealtimeReportType, now, log); err != nil {
			return err
		}
	}

	if o.deps.Strategy.GenerateSummary {
		summary := base
		summary.Mode = o.deps.Strategy.SummaryMode
		o.renderArtifact(summary, o.deps.Strategy.SummaryReportType, log)
		// When a realtime path exists it owns this cycle's push; the
		// summary only leaves an artifact.
		if !o.deps.Strategy.SendRealtime {
			if _, err := o.pushIfEligible(ctx, summary, o.deps.Strategy.SummaryReportType, now, log); err != nil {
				return err
			}
		}
	}

	if o.deps.RetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -o.deps.RetentionDays)
		if err := o.deps.History.Cleanup(ctx, cutoff); err != nil {
			log.Warn().Err(err).Msg("history cleanup failed")
		}
	}

	log.Info().Int("matchedGroups", countMatched(stats)).Int("totalTitles", total).Msg("cycle finished")
	return nil
}

// pushIfEligible walks the full eligibility chain and dispatches at most
// once: notification switch, channel presence, content gate, time window,
// once-per-day throttle. The durable push record advances only after at
// least one channel accepted the report.
func (o *Orchestrator) pushIfEligible(ctx context.Context, rep domain.ReportData, reportType string, now time.Time, log zerolog.Logger) (bool, error) {
	if !o.deps.EnableNotification {
		log.Debug().Str("reportType", reportType).Msg("notifications disabled, skipping push")
		return false, nil
	}
	if !o.deps.Dispatcher.Configured() {
		log.Warn().Str("reportType", reportType).Msg("no notification channel configured, skipping push")
		return false, nil
	}
	if !report.IsWorthReporting(rep.Mode, rep.Stats, rep.NewTitles) {
		log.Info().Str("reportType", reportType).Msg("nothing worth reporting")
		return false, nil
	}

	if o.deps.Window.Enabled {
		inside, err := push.InTimeRange(o.deps.Window.Start, o.deps.Window.End, now)
		if err != nil {
			return false, fmt.Errorf("evaluate push window: %w", err)
		}
		if !inside {
			log.Info().Str("reportType", reportType).
				Str("window", o.deps.Window.Start+"-"+o.deps.Window.End).
				Msg("outside push window, skipping push")
			return false, nil
		}
		if o.deps.Window.OncePerDay {
			pushed, err := o.deps.Governor.HasPushedToday(ctx, now)
			if err != nil {
				return false, fmt.Errorf("check push record: %w", err)
			}
			if pushed {
				log.Info().Str("reportType", reportType).Msg("already pushed today, skipping push")
				return false, nil
			}
		}
	}

	if o.deps.Analyzer != nil {
		analysis, err := o.deps.Analyzer.Analyze(ctx, rep)
		if err != nil {
			log.Warn().Err(err).Msg("trend analysis failed, pushing without it")
		} else {
			rep.AIAnalysis = analysis
		}
	}

	outcome := o.deps.Dispatcher.DispatchAll(ctx, rep, reportType)
	if !outcome.AnySuccess() {
		log.Error().Str("reportType", reportType).Msg("every notification channel failed")
		return false, nil
	}

	if o.deps.Window.Enabled && o.deps.Window.OncePerDay {
		if err := o.deps.Governor.RecordPush(ctx, now, reportType); err != nil {
			log.Error().Err(err).Msg("push delivered but recording failed; a duplicate push is possible")
		}
	}

	log.Info().Str("reportType", reportType).Int("channels", len(outcome)).Msg("report pushed")
	return true, nil
}

func (o *Orchestrator) renderArtifact(rep domain.ReportData, reportType string, log zerolog.Logger) {
	if !o.deps.SaveHTML || o.deps.Renderer == nil {
		return
	}
	path, err := o.deps.Renderer.RenderHTML(rep, reportType)
	if err != nil {
		log.Warn().Err(err).Str("reportType", reportType).Msg("report artifact failed")
		return
	}
	log.Debug().Str("path", path).Msg("report artifact written")
	if !o.deps.Headless && o.deps.Viewer != nil {
		if err := o.deps.Viewer(path); err != nil {
			log.Debug().Err(err).Msg("viewer launch failed")
		}
	}
}

// filterToNew keeps only titles first observed this cycle and drops groups
// left empty, so an incremental push never repeats known content.
func filterToNew(stats []domain.MatchStat) []domain.MatchStat {
	filtered := make([]domain.MatchStat, 0, len(stats))
	for _, stat := range stats {
		fresh := make([]domain.MatchedTitle, 0, len(stat.Titles))
		for _, title := range stat.Titles {
			if title.IsNew {
				fresh = append(fresh, title)
			}
		}
		if len(fresh) == 0 {
			continue
		}
		filtered = append(filtered, domain.MatchStat{
			GroupKey: stat.GroupKey,
			Count:    len(fresh),
			Titles:   fresh,
		})
	}
	return filtered
}

func countMatched(stats []domain.MatchStat) int {
	n := 0
	for _, stat := range stats {
		if stat.Count > 0 {
			n++
		}
	}
	return n
}
