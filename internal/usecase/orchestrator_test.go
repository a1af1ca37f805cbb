package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trendwatch/internal/config"
	"trendwatch/internal/domain"
	"trendwatch/internal/report"
)

type fakeSource struct {
	snap domain.CrawlSnapshot
	err  error
}

func (f fakeSource) FetchCycle(context.Context, time.Time) (domain.CrawlSnapshot, error) {
	return f.snap, f.err
}

type fakeHistory struct {
	saved     []domain.CrawlSnapshot
	newTitles domain.NewTitleSet
	dayTitles domain.TitlesBySource
	idToName  map[string]string
	cleanedUp bool
}

func (f *fakeHistory) SaveSnapshot(_ context.Context, snap domain.CrawlSnapshot) error {
	f.saved = append(f.saved, snap)
	return nil
}

func (f *fakeHistory) ReadDay(context.Context, time.Time, []string) (domain.TitlesBySource, map[string]string, error) {
	names := f.idToName
	if names == nil {
		names = map[string]string{}
	}
	return f.dayTitles, names, nil
}

func (f *fakeHistory) NewTitles(context.Context, time.Time, []string) (domain.NewTitleSet, error) {
	return f.newTitles, nil
}

func (f *fakeHistory) Cleanup(context.Context, time.Time) error {
	f.cleanedUp = true
	return nil
}

type fakeClassifier struct {
	stats []domain.MatchStat
	total int
}

func (f fakeClassifier) Count(domain.TitlesBySource, domain.NewTitleSet, map[string]string) ([]domain.MatchStat, int) {
	return f.stats, f.total
}

type fakeGovernor struct {
	pushedToday bool
	recorded    []string
}

func (f *fakeGovernor) HasPushedToday(context.Context, time.Time) (bool, error) {
	return f.pushedToday, nil
}

func (f *fakeGovernor) RecordPush(_ context.Context, _ time.Time, reportType string) error {
	f.recorded = append(f.recorded, reportType)
	return nil
}

type fakeDispatcher struct {
	configured bool
	outcome    domain.DispatchOutcome
	dispatched []string
}

func (f *fakeDispatcher) Configured() bool { return f.configured }

func (f *fakeDispatcher) DispatchAll(_ context.Context, _ domain.ReportData, reportType string) domain.DispatchOutcome {
	f.dispatched = append(f.dispatched, reportType)
	return f.outcome
}

func openWindow() config.PushWindowConfig {
	return config.PushWindowConfig{Enabled: true, OncePerDay: true, Start: "00:00", End: "23:59"}
}

func matchedStats(isNew bool) []domain.MatchStat {
	return []domain.MatchStat{{
		GroupKey: "AI",
		Count:    1,
		Titles:   []domain.MatchedTitle{{SourceID: "weibo", SourceName: "微博", Title: "AI 突破", IsNew: isNew}},
	}}
}

func newOrchestrator(mode string, history *fakeHistory, gov *fakeGovernor, disp *fakeDispatcher, cls fakeClassifier, window config.PushWindowConfig) *Orchestrator {
	return NewOrchestrator(Deps{
		Source: fakeSource{snap: domain.CrawlSnapshot{
			Results:  domain.TitlesBySource{"weibo": {"AI 突破": {SourceID: "weibo", Title: "AI 突破"}}},
			IDToName: map[string]string{"weibo": "微博"},
		}},
		History:            history,
		Classifier:         cls,
		Governor:           gov,
		Dispatcher:         disp,
		Strategy:           report.StrategyFor(mode, zerolog.Nop()),
		SourceIDs:          []string{"weibo"},
		Window:             window,
		EnableNotification: true,
		RetentionDays:      30,
		Location:           time.UTC,
		Log:                zerolog.Nop(),
	})
}

func TestIncrementalCyclePushesRealtimeOnly(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{
		newTitles: domain.NewTitleSet{"weibo": {"AI 突破"}},
		dayTitles: domain.TitlesBySource{"weibo": {"AI 突破": {Title: "AI 突破"}}},
	}
	gov := &fakeGovernor{}
	disp := &fakeDispatcher{configured: true, outcome: domain.DispatchOutcome{"feishu": true}}

	o := newOrchestrator("incremental", history, gov, disp, fakeClassifier{stats: matchedStats(true), total: 1}, openWindow())
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if err := o.RunCycle(context.Background(), now); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(disp.dispatched) != 1 || disp.dispatched[0] != domain.ReportTypeRealtimeIncremental {
		t.Fatalf("dispatched = %v, want exactly one realtime incremental push", disp.dispatched)
	}
	if len(gov.recorded) != 1 || gov.recorded[0] != domain.ReportTypeRealtimeIncremental {
		t.Fatalf("recorded = %v, want [%s]", gov.recorded, domain.ReportTypeRealtimeIncremental)
	}
	if len(history.saved) != 1 {
		t.Fatalf("snapshots saved = %d, want 1", len(history.saved))
	}
	if !history.cleanedUp {
		t.Fatal("retention cleanup did not run")
	}
}

func TestDailyCycleWithNothingToReportStaysSilent(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{newTitles: domain.NewTitleSet{}, dayTitles: domain.TitlesBySource{}}
	gov := &fakeGovernor{}
	disp := &fakeDispatcher{configured: true, outcome: domain.DispatchOutcome{"feishu": true}}

	o := newOrchestrator("daily", history, gov, disp, fakeClassifier{}, openWindow())

	if err := o.RunCycle(context.Background(), time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(disp.dispatched) != 0 {
		t.Fatalf("dispatched = %v, want none", disp.dispatched)
	}
	if len(gov.recorded) != 0 {
		t.Fatalf("recorded = %v, want none", gov.recorded)
	}
}

func TestCurrentModeFailsFastOnEmptyReadBack(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{newTitles: domain.NewTitleSet{}, dayTitles: domain.TitlesBySource{}}
	gov := &fakeGovernor{}
	disp := &fakeDispatcher{configured: true, outcome: domain.DispatchOutcome{"feishu": true}}

	o := newOrchestrator("current", history, gov, disp, fakeClassifier{stats: matchedStats(false), total: 1}, openWindow())

	err := o.RunCycle(context.Background(), time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrHistoryConsistency) {
		t.Fatalf("err = %v, want ErrHistoryConsistency", err)
	}
	if len(disp.dispatched) != 0 {
		t.Fatalf("dispatched = %v, want none after consistency failure", disp.dispatched)
	}
	if len(gov.recorded) != 0 {
		t.Fatalf("recorded = %v, want none after consistency failure", gov.recorded)
	}
}

func TestOncePerDayThrottleSuppressesSecondPush(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{
		newTitles: domain.NewTitleSet{"weibo": {"AI 突破"}},
		dayTitles: domain.TitlesBySource{"weibo": {"AI 突破": {Title: "AI 突破"}}},
	}
	gov := &fakeGovernor{pushedToday: true}
	disp := &fakeDispatcher{configured: true, outcome: domain.DispatchOutcome{"feishu": true}}

	o := newOrchestrator("daily", history, gov, disp, fakeClassifier{stats: matchedStats(true), total: 1}, openWindow())

	if err := o.RunCycle(context.Background(), time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(disp.dispatched) != 0 {
		t.Fatalf("dispatched = %v, want none while throttled", disp.dispatched)
	}
	if len(gov.recorded) != 0 {
		t.Fatalf("recorded = %v, want no second record", gov.recorded)
	}
}

func TestOutsideWindowSkipsPush(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{
		newTitles: domain.NewTitleSet{"weibo": {"AI 突破"}},
		dayTitles: domain.TitlesBySource{"weibo": {"AI 突破": {Title: "AI 突破"}}},
	}
	gov := &fakeGovernor{}
	disp := &fakeDispatcher{configured: true, outcome: domain.DispatchOutcome{"feishu": true}}

	window := config.PushWindowConfig{Enabled: true, OncePerDay: true, Start: "08:00", End: "22:00"}
	o := newOrchestrator("daily", history, gov, disp, fakeClassifier{stats: matchedStats(true), total: 1}, window)

	if err := o.RunCycle(context.Background(), time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(disp.dispatched) != 0 {
		t.Fatalf("dispatched = %v, want none outside window", disp.dispatched)
	}
}

func TestPushRecordRequiresChannelSuccess(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{
		newTitles: domain.NewTitleSet{"weibo": {"AI 突破"}},
		dayTitles: domain.TitlesBySource{"weibo": {"AI 突破": {Title: "AI 突破"}}},
	}
	gov := &fakeGovernor{}
	disp := &fakeDispatcher{configured: true, outcome: domain.DispatchOutcome{"feishu": false, "telegram": false}}

	o := newOrchestrator("daily", history, gov, disp, fakeClassifier{stats: matchedStats(true), total: 1}, openWindow())

	if err := o.RunCycle(context.Background(), time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(disp.dispatched) != 1 {
		t.Fatalf("dispatched = %v, want one attempt", disp.dispatched)
	}
	if len(gov.recorded) != 0 {
		t.Fatalf("recorded = %v, want none when every channel failed", gov.recorded)
	}
}

func TestUnconfiguredDispatcherSkipsQuietly(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{
		newTitles: domain.NewTitleSet{"weibo": {"AI 突破"}},
		dayTitles: domain.TitlesBySource{"weibo": {"AI 突破": {Title: "AI 突破"}}},
	}
	gov := &fakeGovernor{}
	disp := &fakeDispatcher{configured: false}

	o := newOrchestrator("daily", history, gov, disp, fakeClassifier{stats: matchedStats(true), total: 1}, openWindow())

	if err := o.RunCycle(context.Background(), time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(disp.dispatched) != 0 {
		t.Fatalf("dispatched = %v, want none without channels", disp.dispatched)
	}
}

func TestIncrementalFilterDropsKnownTitles(t *testing.T) {
	t.Parallel()

	stats := []domain.MatchStat{{
		GroupKey: "AI",
		Count:    2,
		Titles: []domain.MatchedTitle{
			{Title: "已知标题", IsNew: false},
			{Title: "新标题", IsNew: true},
		},
	}, {
		GroupKey: "体育",
		Count:    1,
		Titles:   []domain.MatchedTitle{{Title: "旧比赛", IsNew: false}},
	}}

	filtered := filterToNew(stats)
	if len(filtered) != 1 {
		t.Fatalf("filtered groups = %d, want 1", len(filtered))
	}
	if filtered[0].Count != 1 || filtered[0].Titles[0].Title != "新标题" {
		t.Fatalf("filtered = %+v", filtered[0])
	}
}
