package channels

import (
	"context"
	"net/http"

	"trendwatch/internal/domain"
	"trendwatch/internal/notify"
	"trendwatch/internal/ports"
)

// Feishu posts the digest to a Feishu bot webhook.
type Feishu struct {
	url    string
	client *http.Client
}

var _ ports.Channel = (*Feishu)(nil)

func NewFeishu(url string) *Feishu {
	return &Feishu{url: url, client: newHTTPClient()}
}

func (f *Feishu) Name() string { return "feishu" }

func (f *Feishu) Send(ctx context.Context, report domain.ReportData, reportType string) error {
	text := notify.FormatDigest(report, reportType)
	return postJSON(ctx, f.client, f.url, map[string]any{
		"msg_type": "text",
		"content":  map[string]string{"text": text},
	})
}

// DingTalk posts the digest to a DingTalk robot webhook.
type DingTalk struct {
	url    string
	client *http.Client
}

var _ ports.Channel = (*DingTalk)(nil)

func NewDingTalk(url string) *DingTalk {
	return &DingTalk{url: url, client: newHTTPClient()}
}

func (d *DingTalk) Name() string { return "dingtalk" }

func (d *DingTalk) Send(ctx context.Context, report domain.ReportData, reportType string) error {
	return postJSON(ctx, d.client, d.url, map[string]any{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": reportType,
			"text":  notify.FormatDigest(report, reportType),
		},
	})
}

// WeWork posts the digest to a WeCom group robot webhook.
type WeWork struct {
	url    string
	client *http.Client
}

var _ ports.Channel = (*WeWork)(nil)

func NewWeWork(url string) *WeWork {
	return &WeWork{url: url, client: newHTTPClient()}
}

func (w *WeWork) Name() string { return "wework" }

func (w *WeWork) Send(ctx context.Context, report domain.ReportData, reportType string) error {
	return postJSON(ctx, w.client, w.url, map[string]any{
		"msgtype":  "markdown",
		"markdown": map[string]string{"content": notify.FormatDigest(report, reportType)},
	})
}

// Slack posts the digest to an incoming-webhook URL.
type Slack struct {
	url    string
	client *http.Client
}

var _ ports.Channel = (*Slack)(nil)

func NewSlack(url string) *Slack {
	return &Slack{url: url, client: newHTTPClient()}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, report domain.ReportData, reportType string) error {
	return postJSON(ctx, s.client, s.url, map[string]string{
		"text": notify.FormatDigest(report, reportType),
	})
}
