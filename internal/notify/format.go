package notify

import (
	"fmt"
	"strings"

	"trendwatch/internal/domain"
)

const maxTitlesPerGroup = 10

// FormatDigest renders the markdown digest text shared by all channels.
func FormatDigest(report domain.ReportData, reportType string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**%s** · %s\n\n", reportType, report.GeneratedAt.Format("2006-01-02 15:04"))

	for _, stat := range report.Stats {
		if stat.Count == 0 {
			continue
		}
		fmt.Fprintf(&b, "🔥 **%s** (%d)\n", stat.GroupKey, stat.Count)
		for i, title := range stat.Titles {
			if i >= maxTitlesPerGroup {
				fmt.Fprintf(&b, "  … %d more\n", stat.Count-maxTitlesPerGroup)
				break
			}
			marker := ""
			if title.IsNew {
				marker = " 🆕"
			}
			name := title.SourceName
			if name == "" {
				name = title.SourceID
			}
			if title.URL != "" {
				fmt.Fprintf(&b, "  %d. [%s](%s) — %s%s\n", i+1, title.Title, title.URL, name, marker)
			} else {
				fmt.Fprintf(&b, "  %d. %s — %s%s\n", i+1, title.Title, name, marker)
			}
		}
		b.WriteString("\n")
	}

	if newCount := countNewTitles(report.NewTitles); newCount > 0 {
		fmt.Fprintf(&b, "🆕 %d new titles this cycle\n", newCount)
	}
	fmt.Fprintf(&b, "📊 %d titles tracked today\n", report.TotalTitles)

	if len(report.FailedIDs) > 0 {
		fmt.Fprintf(&b, "⚠️ failed sources: %s\n", strings.Join(report.FailedIDs, ", "))
	}

	if report.AIAnalysis != "" {
		b.WriteString("\n---\n")
		b.WriteString(report.AIAnalysis)
		b.WriteString("\n")
	}

	return b.String()
}

func countNewTitles(set domain.NewTitleSet) int {
	n := 0
	for _, titles := range set {
		n += len(titles)
	}
	return n
}
