package channels

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trendwatch/internal/config"
	"trendwatch/internal/domain"
)

func sampleReport() domain.ReportData {
	return domain.ReportData{
		Mode: domain.ModeDaily,
		Stats: []domain.MatchStat{
			{
				GroupKey: "AI",
				Count:    1,
				Titles: []domain.MatchedTitle{
					{SourceID: "weibo", SourceName: "微博", Title: "breakthrough", URL: "https://example.com/1", IsNew: true},
				},
			},
		},
		TotalTitles: 12,
		NewTitles:   domain.NewTitleSet{"weibo": {"breakthrough"}},
		GeneratedAt: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}
}

func TestFromConfigBuildsOnlyCredentialedChannels(t *testing.T) {
	t.Parallel()

	cfg := config.NotificationConfig{
		FeishuWebhookURL: "https://open.feishu.cn/hook/abc",
		Telegram:         config.TelegramConfig{BotToken: "123:abc", ChatID: "42"},
		// email missing password, ntfy missing topic: both must be skipped
		Email: config.EmailConfig{From: "a@b.c", To: "d@e.f"},
		Ntfy:  config.NtfyConfig{ServerURL: "https://ntfy.sh"},
	}

	chans := FromConfig(cfg, zerolog.Nop())

	names := map[string]bool{}
	for _, ch := range chans {
		names[ch.Name()] = true
	}
	if len(chans) != 2 || !names["feishu"] || !names["telegram"] {
		t.Fatalf("configured channels = %v, want exactly feishu and telegram", names)
	}
}

func TestFromConfigSkipsNonNumericTelegramChat(t *testing.T) {
	t.Parallel()

	cfg := config.NotificationConfig{
		Telegram: config.TelegramConfig{BotToken: "123:abc", ChatID: "@channel"},
	}
	if chans := FromConfig(cfg, zerolog.Nop()); len(chans) != 0 {
		t.Fatalf("expected no channels, got %d", len(chans))
	}
}

func TestFeishuSendPayload(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewFeishu(srv.URL)
	if err := ch.Send(context.Background(), sampleReport(), domain.ReportTypeDailySummary); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got["msg_type"] != "text" {
		t.Fatalf("msg_type = %v, want text", got["msg_type"])
	}
	content, ok := got["content"].(map[string]any)
	if !ok || content["text"] == "" {
		t.Fatalf("content missing text: %v", got)
	}
}

func TestWebhookSendReportsHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusForbidden)
	}))
	defer srv.Close()

	ch := NewDingTalk(srv.URL)
	if err := ch.Send(context.Background(), sampleReport(), domain.ReportTypeDailySummary); err == nil {
		t.Fatal("expected error on HTTP 403")
	}
}

func TestNtfySendSetsTitleHeader(t *testing.T) {
	t.Parallel()

	var gotTitle, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewNtfy(config.NtfyConfig{ServerURL: srv.URL, Topic: "trends"})
	if err := ch.Send(context.Background(), sampleReport(), domain.ReportTypeRealtimeCurrent); err != nil {
		t.Fatalf("Send: %v", err)
	}
	// Chinese report types must arrive RFC 2047 encoded; ntfy rejects raw
	// non-ASCII header values.
	want := mime.QEncoding.Encode("utf-8", domain.ReportTypeRealtimeCurrent)
	if gotTitle != want {
		t.Fatalf("Title header = %q, want %q", gotTitle, want)
	}
	if gotPath != "/trends" {
		t.Fatalf("path = %q, want /trends", gotPath)
	}
}

func TestNtfyTitleEncoding(t *testing.T) {
	t.Parallel()

	if got := encodeHeaderValue("daily digest"); got != "daily digest" {
		t.Fatalf("ascii title changed: %q", got)
	}
	got := encodeHeaderValue(domain.ReportTypeDailySummary)
	if got == domain.ReportTypeDailySummary {
		t.Fatal("non-ascii title was not encoded")
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(got)
	if err != nil || decoded != domain.ReportTypeDailySummary {
		t.Fatalf("encoded title does not round-trip: %q (%v)", decoded, err)
	}
}

func TestEmailDerivesSMTPHost(t *testing.T) {
	t.Parallel()

	ch := NewEmail(config.EmailConfig{From: "bot@example.org", Password: "x", To: "a@b.c, d@e.f"})
	if ch.host != "smtp.example.org" {
		t.Fatalf("derived host = %q", ch.host)
	}
	if ch.port != defaultSMTPPort {
		t.Fatalf("port = %d, want %d", ch.port, defaultSMTPPort)
	}
	if len(ch.to) != 2 {
		t.Fatalf("recipients = %v, want 2 entries", ch.to)
	}
}
