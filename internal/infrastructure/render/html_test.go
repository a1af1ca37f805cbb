package render

import (
	"os"
	"strings"
	"testing"
	"time"

	"trendwatch/internal/domain"
)

func TestRenderHTMLWritesPage(t *testing.T) {
	t.Parallel()

	r, err := NewHTMLRenderer(t.TempDir())
	if err != nil {
		t.Fatalf("NewHTMLRenderer: %v", err)
	}

	report := domain.ReportData{
		Mode: domain.ModeDaily,
		Stats: []domain.MatchStat{
			{
				GroupKey: "AI/人工智能",
				Count:    2,
				Titles: []domain.MatchedTitle{
					{SourceID: "weibo", SourceName: "微博", Title: "AI 新进展", URL: "https://example.com/1", IsNew: true},
					{SourceID: "zhihu", SourceName: "知乎", Title: "人工智能讨论"},
				},
			},
		},
		TotalTitles: 40,
		FailedIDs:   []string{"douyin"},
		IDToName:    map[string]string{"douyin": "抖音"},
		AIAnalysis:  "热度集中在 AI 相关话题。",
		GeneratedAt: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}

	path, err := r.RenderHTML(report, domain.ReportTypeDailySummary)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	page := string(raw)

	for _, want := range []string{
		domain.ReportTypeDailySummary,
		"AI/人工智能",
		`<a href="https://example.com/1"`,
		`<span class="new">`,
		"抖音",
		"热度集中在 AI 相关话题。",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if !strings.Contains(path, "2026-03-10") {
		t.Errorf("path %s not grouped by date", path)
	}
}
