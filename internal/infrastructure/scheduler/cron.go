// Package scheduler drives recurring cycles with cron expressions.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"trendwatch/internal/ports"
)

// CronScheduler runs the cycle job on a cron expression evaluated in the
// site's timezone.
type CronScheduler struct {
	expr string
	loc  *time.Location
	log  zerolog.Logger
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

func NewCron(expr string, loc *time.Location, log zerolog.Logger) *CronScheduler {
	return &CronScheduler{expr: expr, loc: loc, log: log}
}

// Start schedules the job and begins the cron loop. Returns an error for a
// malformed expression.
func (s *CronScheduler) Start(ctx context.Context, job func(now time.Time)) error {
	s.cron = cron.New(cron.WithLocation(s.loc))
	_, err := s.cron.AddFunc(s.expr, func() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		job(time.Now().In(s.loc))
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Str("cron", s.expr).Msg("scheduler started")
	return nil
}

// Stop halts scheduling and waits for a running job to finish or the
// context to expire.
func (s *CronScheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info().Msg("scheduler stopped")
	return nil
}
