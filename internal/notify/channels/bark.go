package channels

import (
	"context"
	"net/http"

	"trendwatch/internal/domain"
	"trendwatch/internal/notify"
	"trendwatch/internal/ports"
)

// Bark pushes the digest to an iOS device through a Bark server URL that
// already embeds the device key.
type Bark struct {
	url    string
	client *http.Client
}

var _ ports.Channel = (*Bark)(nil)

func NewBark(url string) *Bark {
	return &Bark{url: url, client: newHTTPClient()}
}

func (b *Bark) Name() string { return "bark" }

func (b *Bark) Send(ctx context.Context, report domain.ReportData, reportType string) error {
	return postJSON(ctx, b.client, b.url, map[string]string{
		"title": reportType,
		"body":  notify.FormatDigest(report, reportType),
	})
}
