package domain

import "time"

// ReportMode governs deduplication and push cadence for a run. The mode is
// fixed at process start; switching modes requires a restart.
type ReportMode string

const (
	ModeIncremental ReportMode = "incremental"
	ModeCurrent     ReportMode = "current"
	ModeDaily       ReportMode = "daily"
)

// Report type labels. They surface verbatim in pushed digests and in the
// durable push record, so they keep the product's user-facing wording.
const (
	ReportTypeRealtimeIncremental = "实时增量"
	ReportTypeRealtimeCurrent     = "实时当前榜单"
	ReportTypeDailySummary        = "当日汇总"
	ReportTypeCurrentSummary      = "当前榜单汇总"
)

// Source is a single monitored feed: a news platform hot list or a
// synthetic feed such as a crypto symbol. Identity is ID; Name is cosmetic.
type Source struct {
	ID   string
	Name string
}

// TitleRecord tracks one (source, title) pair across a day's crawl cycles.
// Count and Ranks grow on every cycle where the same title reappears.
type TitleRecord struct {
	SourceID  string
	Title     string
	FirstSeen time.Time
	LastSeen  time.Time
	Count     int
	Ranks     []int
	URL       string
	MobileURL string
}

// TitlesBySource maps source id → title → accumulated record.
type TitlesBySource map[string]map[string]TitleRecord

// NewTitleSet maps source id to the titles first observed in the current
// cycle, restricted to currently monitored sources. Derived every cycle,
// never persisted as its own entity.
type NewTitleSet map[string][]string

// HasAny reports whether at least one source contributed a new title.
func (s NewTitleSet) HasAny() bool {
	for _, titles := range s {
		if len(titles) > 0 {
			return true
		}
	}
	return false
}

// Contains reports whether the given (source, title) pair is new this cycle.
func (s NewTitleSet) Contains(sourceID, title string) bool {
	for _, t := range s[sourceID] {
		if t == title {
			return true
		}
	}
	return false
}

// CrawlSnapshot is the outcome of one crawl cycle before persistence.
// FailedIDs lists sources whose fetch failed; they degrade report richness
// but never abort the cycle.
type CrawlSnapshot struct {
	Results   TitlesBySource
	IDToName  map[string]string
	FailedIDs []string
	FetchedAt time.Time
}

// MatchedTitle is one title attributed to a keyword group.
type MatchedTitle struct {
	SourceID   string
	SourceName string
	Title      string
	Ranks      []int
	Count      int
	URL        string
	MobileURL  string
	IsNew      bool
}

// MatchStat is the classifier output for one keyword group. Count is the
// number of distinct matched titles across all monitored sources.
type MatchStat struct {
	GroupKey string
	Count    int
	Titles   []MatchedTitle
}

// ReportData is the bundle handed to the renderer and every notification
// channel. No other wire format is promised.
type ReportData struct {
	Mode        ReportMode
	Stats       []MatchStat
	TotalTitles int
	FailedIDs   []string
	NewTitles   NewTitleSet
	IDToName    map[string]string
	AIAnalysis  string
	GeneratedAt time.Time
}

// DispatchOutcome records per-channel delivery results for one dispatch.
// Channels with no credentials configured are absent, not false. An empty
// outcome means no channel was configured at all.
type DispatchOutcome map[string]bool

// AnySuccess reports whether at least one channel accepted the report.
func (o DispatchOutcome) AnySuccess() bool {
	for _, ok := range o {
		if ok {
			return true
		}
	}
	return false
}

// PushWindowState is the durable once-per-day push record for one calendar
// date in site-local time. It must survive process restarts.
type PushWindowState struct {
	Date        string
	ReportTypes []string
}
