package channels

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"trendwatch/internal/config"
	"trendwatch/internal/domain"
	"trendwatch/internal/notify"
	"trendwatch/internal/ports"
)

const defaultSMTPPort = 587

// Email sends the digest over SMTP. The SMTP host defaults to
// "smtp." + the sender's domain when not configured explicitly.
type Email struct {
	from     string
	password string
	to       []string
	host     string
	port     int
}

var _ ports.Channel = (*Email)(nil)

func NewEmail(cfg config.EmailConfig) *Email {
	host := cfg.SMTPHost
	if host == "" {
		if _, domainPart, ok := strings.Cut(cfg.From, "@"); ok {
			host = "smtp." + domainPart
		}
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = defaultSMTPPort
	}

	var to []string
	for _, addr := range strings.Split(cfg.To, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}

	return &Email{from: cfg.From, password: cfg.Password, to: to, host: host, port: port}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(_ context.Context, report domain.ReportData, reportType string) error {
	if e.host == "" || len(e.to) == 0 {
		return fmt.Errorf("email channel misconfigured")
	}

	body := notify.FormatDigest(report, reportType)
	msg := buildMessage(e.from, e.to, reportType, body)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.from, e.password, e.host)
	if err := smtp.SendMail(addr, auth, e.from, e.to, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
