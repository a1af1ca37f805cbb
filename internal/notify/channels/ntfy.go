package channels

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"trendwatch/internal/config"
	"trendwatch/internal/domain"
	"trendwatch/internal/notify"
	"trendwatch/internal/ports"
)

// Ntfy publishes the digest to an ntfy topic.
type Ntfy struct {
	serverURL string
	topic     string
	token     string
	client    *http.Client
}

var _ ports.Channel = (*Ntfy)(nil)

func NewNtfy(cfg config.NtfyConfig) *Ntfy {
	return &Ntfy{
		serverURL: strings.TrimRight(cfg.ServerURL, "/"),
		topic:     cfg.Topic,
		token:     cfg.Token,
		client:    newHTTPClient(),
	}
}

func (n *Ntfy) Name() string { return "ntfy" }

func (n *Ntfy) Send(ctx context.Context, report domain.ReportData, reportType string) error {
	body := notify.FormatDigest(report, reportType)
	url := n.serverURL + "/" + n.topic

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Title", encodeHeaderValue(reportType))
	req.Header.Set("Markdown", "yes")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ntfy error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// encodeHeaderValue makes a string safe for an HTTP header. ntfy requires
// RFC 2047 encoding for non-ASCII titles; plain ASCII passes through.
func encodeHeaderValue(v string) string {
	for i := 0; i < len(v); i++ {
		if v[i] >= utf8.RuneSelf {
			return mime.QEncoding.Encode("utf-8", v)
		}
	}
	return v
}
