package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trendwatch/internal/domain"
	"trendwatch/internal/ports"
)

type stubChannel struct {
	name  string
	err   error
	calls atomic.Int32
}

var _ ports.Channel = (*stubChannel)(nil)

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(context.Context, domain.ReportData, string) error {
	s.calls.Add(1)
	return s.err
}

func TestDispatchAllIsolatesFailures(t *testing.T) {
	t.Parallel()

	good1 := &stubChannel{name: "feishu"}
	bad := &stubChannel{name: "telegram", err: errors.New("boom")}
	good2 := &stubChannel{name: "email"}

	d := NewDispatcher([]ports.Channel{good1, bad, good2}, zerolog.Nop())

	outcome := d.DispatchAll(context.Background(), domain.ReportData{}, domain.ReportTypeDailySummary)

	if len(outcome) != 3 {
		t.Fatalf("outcome has %d entries, want 3: %v", len(outcome), outcome)
	}
	if !outcome["feishu"] || !outcome["email"] {
		t.Fatalf("healthy channels not marked successful: %v", outcome)
	}
	if outcome["telegram"] {
		t.Fatalf("failing channel marked successful: %v", outcome)
	}
	if !outcome.AnySuccess() {
		t.Fatal("AnySuccess should be true with two healthy channels")
	}

	for _, ch := range []*stubChannel{good1, bad, good2} {
		if got := ch.calls.Load(); got != 1 {
			t.Fatalf("channel %s attempted %d times, want 1", ch.name, got)
		}
	}
}

func TestDispatchAllEmptyWhenNothingConfigured(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil, zerolog.Nop())
	if d.Configured() {
		t.Fatal("Configured() must be false with no adapters")
	}

	outcome := d.DispatchAll(context.Background(), domain.ReportData{}, domain.ReportTypeDailySummary)
	if len(outcome) != 0 {
		t.Fatalf("outcome should be empty, got %v", outcome)
	}
	if outcome.AnySuccess() {
		t.Fatal("empty outcome must not report success")
	}
}

type slowChannel struct {
	name string
	wait time.Duration
}

func (s *slowChannel) Name() string { return s.name }

func (s *slowChannel) Send(ctx context.Context, _ domain.ReportData, _ string) error {
	select {
	case <-time.After(s.wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestDispatchAllBoundsSlowChannels(t *testing.T) {
	t.Parallel()

	d := NewDispatcher([]ports.Channel{&slowChannel{name: "slow", wait: time.Minute}}, zerolog.Nop())
	d.timeout = 20 * time.Millisecond

	start := time.Now()
	outcome := d.DispatchAll(context.Background(), domain.ReportData{}, domain.ReportTypeDailySummary)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("dispatch took %v, timeout not applied", elapsed)
	}
	if outcome["slow"] {
		t.Fatal("timed-out channel must be recorded as failed")
	}
}
