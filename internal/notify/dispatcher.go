package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trendwatch/internal/domain"
	"trendwatch/internal/ports"
)

const defaultSendTimeout = 30 * time.Second

// Dispatcher fans a prepared report out to every configured channel.
// Channels run independently: one channel's failure is logged, recorded as
// false in the outcome and never aborts the others.
type Dispatcher struct {
	channels []ports.Channel
	timeout  time.Duration
	log      zerolog.Logger
}

var _ ports.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher wires the adapter list built from configuration.
func NewDispatcher(channels []ports.Channel, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{channels: channels, timeout: defaultSendTimeout, log: log}
}

// Configured reports whether at least one channel adapter exists.
func (d *Dispatcher) Configured() bool {
	return len(d.channels) > 0
}

// DispatchAll attempts every configured channel concurrently and returns
// once all attempts finished. The outcome holds exactly one entry per
// configured channel; an empty outcome means no channel was configured.
// Ordering between channels is unspecified.
func (d *Dispatcher) DispatchAll(ctx context.Context, report domain.ReportData, reportType string) domain.DispatchOutcome {
	outcome := make(domain.DispatchOutcome, len(d.channels))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, ch := range d.channels {
		wg.Add(1)
		go func(ch ports.Channel) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			err := ch.Send(sendCtx, report, reportType)

			mu.Lock()
			outcome[ch.Name()] = err == nil
			mu.Unlock()

			if err != nil {
				d.log.Error().Err(err).Str("channel", ch.Name()).Str("reportType", reportType).Msg("channel send failed")
				return
			}
			d.log.Info().Str("channel", ch.Name()).Str("reportType", reportType).Msg("channel send ok")
		}(ch)
	}
	wg.Wait()

	return outcome
}
