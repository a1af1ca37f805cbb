// Package classify matches titles against configured keyword groups and
// produces per-group frequency statistics.
package classify

import (
	"sort"
	"strings"

	"trendwatch/internal/config"
	"trendwatch/internal/domain"
	"trendwatch/internal/ports"
)

// FrequencyCounter is the keyword-group classifier. Matching is
// case-insensitive substring containment: a title matches a group when it
// contains any of the group's words, all of its required words and none of
// its excluded words, and no global filter word.
type FrequencyCounter struct {
	groups        []config.KeywordGroup
	globalFilters []string
}

var _ ports.Classifier = (*FrequencyCounter)(nil)

// NewFrequencyCounter builds a classifier from the keyword configuration.
func NewFrequencyCounter(cfg config.KeywordConfig) *FrequencyCounter {
	return &FrequencyCounter{groups: cfg.Groups, globalFilters: cfg.GlobalFilters}
}

// Count classifies every title and returns one MatchStat per configured
// group (ordered by match count, descending) plus the total number of
// distinct titles considered.
func (c *FrequencyCounter) Count(titles domain.TitlesBySource, newTitles domain.NewTitleSet, idToName map[string]string) ([]domain.MatchStat, int) {
	total := 0
	stats := make([]domain.MatchStat, len(c.groups))
	for i, group := range c.groups {
		stats[i] = domain.MatchStat{GroupKey: groupKey(group)}
	}

	for sourceID, records := range titles {
		for title, record := range records {
			total++
			lower := strings.ToLower(title)
			if c.filtered(lower) {
				continue
			}
			for i, group := range c.groups {
				if !matches(lower, group) {
					continue
				}
				stats[i].Count++
				stats[i].Titles = append(stats[i].Titles, domain.MatchedTitle{
					SourceID:   sourceID,
					SourceName: idToName[sourceID],
					Title:      title,
					Ranks:      record.Ranks,
					Count:      record.Count,
					URL:        record.URL,
					MobileURL:  record.MobileURL,
					IsNew:      newTitles.Contains(sourceID, title),
				})
			}
		}
	}

	for i := range stats {
		sortMatches(stats[i].Titles)
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Count > stats[j].Count })

	return stats, total
}

func (c *FrequencyCounter) filtered(lowerTitle string) bool {
	for _, word := range c.globalFilters {
		if word != "" && strings.Contains(lowerTitle, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

func matches(lowerTitle string, group config.KeywordGroup) bool {
	for _, word := range group.Exclude {
		if word != "" && strings.Contains(lowerTitle, strings.ToLower(word)) {
			return false
		}
	}
	for _, word := range group.Required {
		if word != "" && !strings.Contains(lowerTitle, strings.ToLower(word)) {
			return false
		}
	}
	if len(group.Words) == 0 {
		// Required-only groups are allowed.
		return len(group.Required) > 0
	}
	for _, word := range group.Words {
		if word != "" && strings.Contains(lowerTitle, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// sortMatches orders matched titles by how persistently high they ranked:
// more observations first, then better (lower) best rank, then title for
// stability.
func sortMatches(titles []domain.MatchedTitle) {
	sort.SliceStable(titles, func(i, j int) bool {
		if titles[i].Count != titles[j].Count {
			return titles[i].Count > titles[j].Count
		}
		ri, rj := bestRank(titles[i].Ranks), bestRank(titles[j].Ranks)
		if ri != rj {
			return ri < rj
		}
		return titles[i].Title < titles[j].Title
	})
}

func bestRank(ranks []int) int {
	best := int(^uint(0) >> 1)
	for _, r := range ranks {
		if r > 0 && r < best {
			best = r
		}
	}
	return best
}

func groupKey(group config.KeywordGroup) string {
	if len(group.Words) > 0 {
		return strings.Join(group.Words, "/")
	}
	return strings.Join(group.Required, "+")
}
