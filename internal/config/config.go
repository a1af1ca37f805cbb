package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Asia/Shanghai"

	configPathEnv      = "TRENDWATCH_CONFIG"
	reportModeEnv      = "REPORT_MODE"
	retentionDaysEnv   = "STORAGE_RETENTION_DAYS"
	feishuWebhookEnv   = "FEISHU_WEBHOOK_URL"
	dingtalkWebhookEnv = "DINGTALK_WEBHOOK_URL"
	weworkWebhookEnv   = "WEWORK_WEBHOOK_URL"
	slackWebhookEnv    = "SLACK_WEBHOOK_URL"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	emailFromEnv       = "EMAIL_FROM"
	emailPasswordEnv   = "EMAIL_PASSWORD"
	emailToEnv         = "EMAIL_TO"
	ntfyServerEnv      = "NTFY_SERVER_URL"
	ntfyTopicEnv       = "NTFY_TOPIC"
	barkURLEnv         = "BARK_URL"
	anthropicKeyEnv    = "ANTHROPIC_API_KEY"
)

// Config holds high-level settings required across the application.
// It is read once at process start and immutable for the rest of the run.
type Config struct {
	App           AppConfig          `yaml:"app"`
	Crawler       CrawlerConfig      `yaml:"crawler"`
	Storage       StorageConfig      `yaml:"storage"`
	PushWindow    PushWindowConfig   `yaml:"pushWindow"`
	Notifications NotificationConfig `yaml:"notifications"`
	Keywords      KeywordConfig      `yaml:"keywords"`
	Crypto        CryptoConfig       `yaml:"crypto"`
	AI            AIConfig           `yaml:"ai"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Platforms     []PlatformConfig   `yaml:"platforms"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// AppConfig groups run-wide switches.
type AppConfig struct {
	Timezone           string `yaml:"timezone"`
	ReportMode         string `yaml:"reportMode"`
	EnableCrawler      bool   `yaml:"enableCrawler"`
	EnableNotification bool   `yaml:"enableNotification"`

	location *time.Location `yaml:"-"`
}

// CrawlerConfig tunes the fetch loop.
type CrawlerConfig struct {
	APIBaseURL        string `yaml:"apiBaseUrl"`
	RequestIntervalMS int    `yaml:"requestIntervalMs"`
	UseProxy          bool   `yaml:"useProxy"`
	ProxyURL          string `yaml:"proxyUrl"`
}

// RequestInterval returns the minimum spacing between source fetches.
func (c CrawlerConfig) RequestInterval() time.Duration {
	if c.RequestIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.RequestIntervalMS) * time.Millisecond
}

// StorageConfig describes the SQLite history database and artifacts.
type StorageConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retentionDays"`
	SaveHTML      bool   `yaml:"saveHtml"`
	OutputDir     string `yaml:"outputDir"`
}

// PushWindowConfig restricts when notifications may be sent.
type PushWindowConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OncePerDay bool   `yaml:"oncePerDay"`
	Start      string `yaml:"start"`
	End        string `yaml:"end"`
}

// NotificationConfig encapsulates all outbound channel credentials. A
// channel is considered configured only when its minimum required fields
// are non-empty.
type NotificationConfig struct {
	FeishuWebhookURL   string         `yaml:"feishuWebhookUrl"`
	DingTalkWebhookURL string         `yaml:"dingtalkWebhookUrl"`
	WeWorkWebhookURL   string         `yaml:"weworkWebhookUrl"`
	SlackWebhookURL    string         `yaml:"slackWebhookUrl"`
	BarkURL            string         `yaml:"barkUrl"`
	Telegram           TelegramConfig `yaml:"telegram"`
	Email              EmailConfig    `yaml:"email"`
	Ntfy               NtfyConfig     `yaml:"ntfy"`
}

// TelegramConfig wires the bot channel.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// EmailConfig wires the SMTP channel.
type EmailConfig struct {
	From     string `yaml:"from"`
	Password string `yaml:"password"`
	To       string `yaml:"to"`
	SMTPHost string `yaml:"smtpHost"`
	SMTPPort int    `yaml:"smtpPort"`
}

// NtfyConfig wires the ntfy push channel.
type NtfyConfig struct {
	ServerURL string `yaml:"serverUrl"`
	Topic     string `yaml:"topic"`
	Token     string `yaml:"token"`
}

// KeywordGroup is one group of frequency words. A title matches the group
// when it contains any of Words, all of Required and none of Exclude.
type KeywordGroup struct {
	Words    []string `yaml:"words"`
	Required []string `yaml:"required"`
	Exclude  []string `yaml:"exclude"`
}

// KeywordConfig drives the frequency classifier.
type KeywordConfig struct {
	Groups        []KeywordGroup `yaml:"groups"`
	GlobalFilters []string       `yaml:"globalFilters"`
}

// CryptoConfig enables synthetic price-feed sources.
type CryptoConfig struct {
	Enabled bool     `yaml:"enabled"`
	Symbols []string `yaml:"symbols"`
}

// AIConfig enables the optional trend-analysis call.
type AIConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
}

// SchedulerConfig defines recurring execution. An empty cron expression
// means the process runs exactly one cycle and exits (CI/cron driven).
type SchedulerConfig struct {
	CronExpression string `yaml:"cronExpression"`
}

// PlatformConfig describes a single monitored feed.
type PlatformConfig struct {
	ID      string            `yaml:"id"`
	Name    string            `yaml:"name"`
	Kind    string            `yaml:"kind"`
	URL     string            `yaml:"url"`
	Options map[string]string `yaml:"options"`
}

// LoggingConfig tunes console output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Location resolves the configured timezone to a time.Location.
func (a AppConfig) Location() *time.Location {
	if a.location != nil {
		return a.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Load reads YAML configuration (if present) and applies environment
// overrides on top of built-in defaults. A config file that is explicitly
// named but cannot be read or parsed is a fatal error: running a cycle on
// silently substituted defaults would push the wrong content.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Platforms) == 0 {
		cfg.Platforms = defaultConfig().Platforms
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(reportModeEnv); v != "" {
		c.App.ReportMode = v
	}
	if v := os.Getenv(retentionDaysEnv); v != "" {
		if days, err := parsePositiveInt(v); err == nil {
			c.Storage.RetentionDays = days
		} else {
			log.Printf("config: invalid %s=%q, keeping %d", retentionDaysEnv, v, c.Storage.RetentionDays)
		}
	}

	if v := os.Getenv(feishuWebhookEnv); v != "" {
		c.Notifications.FeishuWebhookURL = v
	}
	if v := os.Getenv(dingtalkWebhookEnv); v != "" {
		c.Notifications.DingTalkWebhookURL = v
	}
	if v := os.Getenv(weworkWebhookEnv); v != "" {
		c.Notifications.WeWorkWebhookURL = v
	}
	if v := os.Getenv(slackWebhookEnv); v != "" {
		c.Notifications.SlackWebhookURL = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(emailFromEnv); v != "" {
		c.Notifications.Email.From = v
	}
	if v := os.Getenv(emailPasswordEnv); v != "" {
		c.Notifications.Email.Password = v
	}
	if v := os.Getenv(emailToEnv); v != "" {
		c.Notifications.Email.To = v
	}
	if v := os.Getenv(ntfyServerEnv); v != "" {
		c.Notifications.Ntfy.ServerURL = v
	}
	if v := os.Getenv(ntfyTopicEnv); v != "" {
		c.Notifications.Ntfy.Topic = v
	}
	if v := os.Getenv(barkURLEnv); v != "" {
		c.Notifications.BarkURL = v
	}
	if v := os.Getenv(anthropicKeyEnv); v != "" {
		c.AI.APIKey = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.App.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.App.location = loc
}

// MonitoredIDs returns the ids of every currently configured source,
// including synthetic crypto symbols when enabled. This is the filter set
// for all history reads.
func (c Config) MonitoredIDs() []string {
	ids := make([]string, 0, len(c.Platforms)+len(c.Crypto.Symbols))
	for _, p := range c.Platforms {
		ids = append(ids, p.ID)
	}
	if c.Crypto.Enabled {
		ids = append(ids, c.Crypto.Symbols...)
	}
	return ids
}

// Headless reports whether the process runs in a scheduled or containerized
// environment where opening a local viewer makes no sense.
func Headless() bool {
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		return true
	}
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

func parsePositiveInt(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		App: AppConfig{
			Timezone:           defaultTimezone,
			ReportMode:         "daily",
			EnableCrawler:      true,
			EnableNotification: true,
			location:           tz,
		},
		Crawler: CrawlerConfig{
			APIBaseURL:        "https://newsnow.busiyi.world/api",
			RequestIntervalMS: 1000,
		},
		Storage: StorageConfig{
			Path:          "output/trendwatch.db",
			RetentionDays: 30,
			SaveHTML:      true,
			OutputDir:     "output",
		},
		PushWindow: PushWindowConfig{
			Enabled:    false,
			OncePerDay: false,
			Start:      "08:00",
			End:        "22:00",
		},
		Crypto: CryptoConfig{
			Symbols: []string{"BTCUSDT", "ETHUSDT"},
		},
		AI: AIConfig{
			Model: "claude-3-5-sonnet-20241022",
		},
		Platforms: []PlatformConfig{
			{ID: "weibo", Name: "微博", Kind: "hotlist"},
			{ID: "zhihu", Name: "知乎", Kind: "hotlist"},
			{ID: "douyin", Name: "抖音", Kind: "hotlist"},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
