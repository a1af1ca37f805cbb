package push

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trendwatch/internal/domain"
	"trendwatch/internal/ports"
)

const dateLayout = "2006-01-02"

// Governor enforces the push time window and the optional once-per-day cap
// over durable state. State is re-read from the store on every call so that
// a day spanning multiple process invocations is throttled correctly.
type Governor struct {
	store ports.PushStateStore
	loc   *time.Location
	log   zerolog.Logger
}

var _ ports.PushGovernor = (*Governor)(nil)

// NewGovernor wires the durable state store and the site-local timezone.
func NewGovernor(store ports.PushStateStore, loc *time.Location, log zerolog.Logger) *Governor {
	if loc == nil {
		loc = time.Local
	}
	return &Governor{store: store, loc: loc, log: log}
}

// InTimeRange reports whether now falls inside the HH:MM window. Both
// boundaries are inclusive. Windows where start > end wrap midnight, e.g.
// 22:00-06:00 covers 23:30 but not 12:00.
func InTimeRange(start, end string, now time.Time) (bool, error) {
	startMin, err := parseClock(start)
	if err != nil {
		return false, fmt.Errorf("parse window start: %w", err)
	}
	endMin, err := parseClock(end)
	if err != nil {
		return false, fmt.Errorf("parse window end: %w", err)
	}

	minute := now.Hour()*60 + now.Minute()
	if startMin > endMin {
		return minute >= startMin || minute <= endMin, nil
	}
	return minute >= startMin && minute <= endMin, nil
}

// HasPushedToday reports whether any push was recorded for now's calendar
// date in the site-local timezone. A new date implicitly starts clean.
func (g *Governor) HasPushedToday(ctx context.Context, now time.Time) (bool, error) {
	date := now.In(g.loc).Format(dateLayout)
	state, err := g.store.Load(ctx, date)
	if err != nil {
		return false, fmt.Errorf("load push state: %w", err)
	}
	return state.Date == date && len(state.ReportTypes) > 0, nil
}

// RecordPush appends reportType to today's durable record. Rolling over to
// a new date needs no explicit reset: records are keyed by calendar date.
func (g *Governor) RecordPush(ctx context.Context, now time.Time, reportType string) error {
	date := now.In(g.loc).Format(dateLayout)
	state, err := g.store.Load(ctx, date)
	if err != nil {
		return fmt.Errorf("load push state: %w", err)
	}
	if state.Date != date {
		state = domain.PushWindowState{Date: date}
	}
	state.ReportTypes = append(state.ReportTypes, reportType)

	if err := g.store.Save(ctx, state); err != nil {
		return fmt.Errorf("save push state: %w", err)
	}
	g.log.Debug().Str("date", date).Str("reportType", reportType).Msg("push recorded")
	return nil
}

func parseClock(v string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(v), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%q is not HH:MM", v)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%q is not HH:MM: %w", v, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%q is not HH:MM: %w", v, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%q is out of range", v)
	}
	return hour*60 + minute, nil
}
