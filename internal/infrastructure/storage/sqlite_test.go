package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trendwatch/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func snapshot(at time.Time, sourceID, name string, titles map[string][]int) domain.CrawlSnapshot {
	records := map[string]domain.TitleRecord{}
	for title, ranks := range titles {
		records[title] = domain.TitleRecord{
			SourceID: sourceID,
			Title:    title,
			Ranks:    ranks,
			URL:      "https://example.com/" + title,
		}
	}
	return domain.CrawlSnapshot{
		Results:   domain.TitlesBySource{sourceID: records},
		IDToName:  map[string]string{sourceID: name},
		FetchedAt: at,
	}
}

func TestSaveSnapshotAccumulates(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	if err := store.SaveSnapshot(ctx, snapshot(day, "weibo", "微博", map[string][]int{"headline": {1}})); err != nil {
		t.Fatalf("first SaveSnapshot: %v", err)
	}
	if err := store.SaveSnapshot(ctx, snapshot(day.Add(time.Hour), "weibo", "微博", map[string][]int{"headline": {3}})); err != nil {
		t.Fatalf("second SaveSnapshot: %v", err)
	}

	titles, idToName, err := store.ReadDay(ctx, day, []string{"weibo"})
	if err != nil {
		t.Fatalf("ReadDay: %v", err)
	}

	rec := titles["weibo"]["headline"]
	if rec.Count != 2 {
		t.Fatalf("count = %d, want 2", rec.Count)
	}
	if len(rec.Ranks) != 2 || rec.Ranks[0] != 1 || rec.Ranks[1] != 3 {
		t.Fatalf("ranks = %v, want [1 3]", rec.Ranks)
	}
	if idToName["weibo"] != "微博" {
		t.Fatalf("idToName = %v", idToName)
	}
}

func TestNewTitlesOnlyLatestCrawl(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	if err := store.SaveSnapshot(ctx, snapshot(day, "weibo", "微博", map[string][]int{"old": {1}})); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := store.SaveSnapshot(ctx, snapshot(day.Add(time.Hour), "weibo", "微博",
		map[string][]int{"old": {2}, "fresh": {1}})); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	fresh, err := store.NewTitles(ctx, day, []string{"weibo"})
	if err != nil {
		t.Fatalf("NewTitles: %v", err)
	}
	if len(fresh["weibo"]) != 1 || fresh["weibo"][0] != "fresh" {
		t.Fatalf("new titles = %v, want only fresh", fresh)
	}
}

func TestReadsFilterToMonitoredSources(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	if err := store.SaveSnapshot(ctx, snapshot(day, "removed", "旧平台", map[string][]int{"stale": {1}})); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := store.SaveSnapshot(ctx, snapshot(day.Add(time.Minute), "weibo", "微博", map[string][]int{"live": {1}})); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	titles, _, err := store.ReadDay(ctx, day, []string{"weibo"})
	if err != nil {
		t.Fatalf("ReadDay: %v", err)
	}
	if _, ok := titles["removed"]; ok {
		t.Fatal("ReadDay returned a source that is no longer monitored")
	}

	fresh, err := store.NewTitles(ctx, day, []string{"weibo"})
	if err != nil {
		t.Fatalf("NewTitles: %v", err)
	}
	if _, ok := fresh["removed"]; ok {
		t.Fatal("NewTitles returned a source that is no longer monitored")
	}
}

func TestPushStateRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	state, err := store.Load(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if state.Date != "2026-03-10" || len(state.ReportTypes) != 0 {
		t.Fatalf("empty state = %+v", state)
	}

	state.ReportTypes = []string{domain.ReportTypeDailySummary, domain.ReportTypeRealtimeIncremental}
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.ReportTypes) != 2 || loaded.ReportTypes[0] != domain.ReportTypeDailySummary {
		t.Fatalf("loaded = %+v", loaded)
	}

	// A different date starts clean without any reset step.
	next, err := store.Load(ctx, "2026-03-11")
	if err != nil {
		t.Fatalf("Load next day: %v", err)
	}
	if len(next.ReportTypes) != 0 {
		t.Fatalf("next day should be clean: %+v", next)
	}
}

func TestCleanupDropsExpiredDays(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	oldDay := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	newDay := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	if err := store.SaveSnapshot(ctx, snapshot(oldDay, "weibo", "微博", map[string][]int{"old": {1}})); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := store.SaveSnapshot(ctx, snapshot(newDay, "weibo", "微博", map[string][]int{"new": {1}})); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	if err := store.Cleanup(ctx, newDay.AddDate(0, 0, -7)); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	expired, _, err := store.ReadDay(ctx, oldDay, []string{"weibo"})
	if err != nil {
		t.Fatalf("ReadDay expired: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("expired day still present: %v", expired)
	}

	kept, _, err := store.ReadDay(ctx, newDay, []string{"weibo"})
	if err != nil {
		t.Fatalf("ReadDay kept: %v", err)
	}
	if len(kept) != 1 {
		t.Fatalf("recent day missing: %v", kept)
	}
}
