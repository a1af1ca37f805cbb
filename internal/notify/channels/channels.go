// Package channels holds one adapter per notification provider. An adapter
// is constructed only when its minimum required credentials are present, so
// "not configured" is an absent adapter, never an attempted-and-failed send.
package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trendwatch/internal/config"
	"trendwatch/internal/ports"
)

const httpTimeout = 15 * time.Second

// FromConfig builds the adapter list for every provider with credentials.
func FromConfig(cfg config.NotificationConfig, log zerolog.Logger) []ports.Channel {
	var out []ports.Channel

	if cfg.FeishuWebhookURL != "" {
		out = append(out, NewFeishu(cfg.FeishuWebhookURL))
	}
	if cfg.DingTalkWebhookURL != "" {
		out = append(out, NewDingTalk(cfg.DingTalkWebhookURL))
	}
	if cfg.WeWorkWebhookURL != "" {
		out = append(out, NewWeWork(cfg.WeWorkWebhookURL))
	}
	if cfg.SlackWebhookURL != "" {
		out = append(out, NewSlack(cfg.SlackWebhookURL))
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		tg, err := NewTelegram(cfg.Telegram)
		if err != nil {
			log.Warn().Err(err).Msg("telegram channel misconfigured, skipping")
		} else {
			out = append(out, tg)
		}
	}
	if cfg.Email.From != "" && cfg.Email.Password != "" && cfg.Email.To != "" {
		out = append(out, NewEmail(cfg.Email))
	}
	if cfg.Ntfy.ServerURL != "" && cfg.Ntfy.Topic != "" {
		out = append(out, NewNtfy(cfg.Ntfy))
	}
	if cfg.BarkURL != "" {
		out = append(out, NewBark(cfg.BarkURL))
	}

	names := make([]string, 0, len(out))
	for _, ch := range out {
		names = append(names, ch.Name())
	}
	log.Info().Strs("channels", names).Msg("notification channels configured")

	return out
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	return nil
}
