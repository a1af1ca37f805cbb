package report

import (
	"github.com/rs/zerolog"

	"trendwatch/internal/domain"
)

// Strategy fixes, for the lifetime of a process, which report paths run and
// which report types they push. Exactly three strategies exist; there is no
// behavior outside this closed set.
type Strategy struct {
	Mode               domain.ReportMode
	Description        string
	RealtimeReportType string
	SummaryReportType  string
	SendRealtime       bool
	GenerateSummary    bool
	SummaryMode        domain.ReportMode
}

var (
	incrementalStrategy = Strategy{
		Mode:               domain.ModeIncremental,
		Description:        "incremental: only newly observed matched titles trigger a realtime push",
		RealtimeReportType: domain.ReportTypeRealtimeIncremental,
		SummaryReportType:  domain.ReportTypeDailySummary,
		SendRealtime:       true,
		GenerateSummary:    true,
		SummaryMode:        domain.ModeDaily,
	}

	currentStrategy = Strategy{
		Mode:               domain.ModeCurrent,
		Description:        "current: realtime push reflects the whole day's top-ranked state",
		RealtimeReportType: domain.ReportTypeRealtimeCurrent,
		SummaryReportType:  domain.ReportTypeCurrentSummary,
		SendRealtime:       true,
		GenerateSummary:    true,
		SummaryMode:        domain.ModeCurrent,
	}

	dailyStrategy = Strategy{
		Mode:               domain.ModeDaily,
		Description:        "daily: one summary push per cycle, no realtime path",
		RealtimeReportType: "",
		SummaryReportType:  domain.ReportTypeDailySummary,
		SendRealtime:       false,
		GenerateSummary:    true,
		SummaryMode:        domain.ModeDaily,
	}
)

// StrategyFor resolves the configured mode name. Unrecognized names fall
// back to the daily strategy with a logged warning.
func StrategyFor(name string, log zerolog.Logger) Strategy {
	switch domain.ReportMode(name) {
	case domain.ModeIncremental:
		return incrementalStrategy
	case domain.ModeCurrent:
		return currentStrategy
	case domain.ModeDaily:
		return dailyStrategy
	default:
		log.Warn().Str("reportMode", name).Msg("unrecognized report mode, falling back to daily")
		return dailyStrategy
	}
}
