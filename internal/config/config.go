package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "NEWSDIGEST_CONFIG"
	sourceURLEnv     = "NEWSDIGEST_SOURCE_URL"
	keywordsEnv      = "NEWSDIGEST_KEYWORDS"
	storePathEnv     = "NEWSDIGEST_STORE_PATH"
	databaseDSNEnv   = "DATABASE_DSN"
	mailUsernameEnv  = "MAIL_USERNAME"
	mailPasswordEnv  = "MAIL_PASSWORD"
	mailToEnv        = "TO_EMAIL"
	smtpHostEnv      = "SMTP_HOST"
	smtpPortEnv      = "SMTP_PORT"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
	logLevelEnv      = "LOG_LEVEL"

	StoreDriverCSV      = "csv"
	StoreDriverPostgres = "postgres"

	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
)

// tableNameExpr accepts a plain or schema-qualified SQL identifier.
var tableNameExpr = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Config holds high-level settings required across the application.
type Config struct {
	Source        SourceConfig       `yaml:"source"`
	Keywords      []string           `yaml:"keywords"`
	Store         StoreConfig        `yaml:"store"`
	Eligibility   EligibilityConfig  `yaml:"eligibility"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// SourceConfig describes the listing page to harvest.
type SourceConfig struct {
	URL string `yaml:"url"`
	// Origin resolves relative links; defaults to URL.
	Origin    string        `yaml:"origin"`
	Parser    string        `yaml:"parser"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"userAgent"`
}

// OriginURL returns the base used to resolve relative listing links: the
// explicit origin when set, else the scheme and host of the listing URL.
func (s SourceConfig) OriginURL() string {
	if strings.TrimSpace(s.Origin) != "" {
		return s.Origin
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Host == "" {
		return s.URL
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}).String()
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

// EligibilityConfig bounds which records are recent enough for a digest.
type EligibilityConfig struct {
	WindowDays int `yaml:"windowDays"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Channels      []string       `yaml:"channels"`
	SubjectPrefix string         `yaml:"subjectPrefix"`
	Email         EmailConfig    `yaml:"email"`
	Telegram      TelegramConfig `yaml:"telegram"`
}

// EmailConfig carries SMTP session settings.
type EmailConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	From     string        `yaml:"from"`
	To       []string      `yaml:"to"`
	Timeout  time.Duration `yaml:"timeout"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	RunOnStart     bool           `yaml:"runOnStart"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LoggingConfig controls log level and the optional rotated file sink.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An explicit path wins over NEWSDIGEST_CONFIG.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Source.URL) == "" {
		return fmt.Errorf("config: source.url is required")
	}
	if len(c.Keywords) == 0 {
		return fmt.Errorf("config: at least one keyword is required")
	}
	if c.Eligibility.WindowDays < 1 {
		return fmt.Errorf("config: eligibility.windowDays must be positive, got %d", c.Eligibility.WindowDays)
	}

	switch c.Store.Driver {
	case StoreDriverCSV:
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("config: store.path is required for the csv driver")
		}
	case StoreDriverPostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("config: store.dsn is required for the postgres driver")
		}
		if c.Store.Table != "" && !tableNameExpr.MatchString(c.Store.Table) {
			return fmt.Errorf("config: store.table %q is not a valid identifier", c.Store.Table)
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	return nil
}

// ValidateNotifications checks channel settings; only commands that deliver need it.
func (c Config) ValidateNotifications() error {
	if len(c.Notifications.Channels) == 0 {
		return fmt.Errorf("config: no notification channels configured")
	}

	for _, ch := range c.Notifications.Channels {
		switch ch {
		case ChannelEmail:
			mail := c.Notifications.Email
			if mail.Host == "" || mail.From == "" || len(mail.To) == 0 {
				return fmt.Errorf("config: email channel needs host, from and to")
			}
		case ChannelTelegram:
			tg := c.Notifications.Telegram
			if tg.BotToken == "" || tg.ChatID == "" {
				return fmt.Errorf("config: telegram channel needs botToken and chatId")
			}
		default:
			return fmt.Errorf("config: unknown notification channel %q", ch)
		}
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(sourceURLEnv); v != "" {
		c.Source.URL = v
	}

	if v := os.Getenv(keywordsEnv); v != "" {
		c.Keywords = splitList(v)
	}

	if v := os.Getenv(storePathEnv); v != "" {
		c.Store.Path = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Store.DSN = v
	}

	if v := os.Getenv(mailUsernameEnv); v != "" {
		c.Notifications.Email.Username = v
		if c.Notifications.Email.From == "" {
			c.Notifications.Email.From = v
		}
	}

	if v := os.Getenv(mailPasswordEnv); v != "" {
		c.Notifications.Email.Password = v
	}

	if v := os.Getenv(mailToEnv); v != "" {
		c.Notifications.Email.To = splitList(v)
	}

	if v := os.Getenv(smtpHostEnv); v != "" {
		c.Notifications.Email.Host = v
	}

	if v := os.Getenv(smtpPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Notifications.Email.Port = port
		} else {
			log.Printf("config: ignoring invalid %s=%q", smtpPortEnv, v)
		}
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Source.URL != "" {
		base.Source.URL = override.Source.URL
	}
	if override.Source.Origin != "" {
		base.Source.Origin = override.Source.Origin
	}
	if override.Source.Parser != "" {
		base.Source.Parser = override.Source.Parser
	}
	if override.Source.Timeout > 0 {
		base.Source.Timeout = override.Source.Timeout
	}
	if override.Source.UserAgent != "" {
		base.Source.UserAgent = override.Source.UserAgent
	}

	if len(override.Keywords) > 0 {
		base.Keywords = override.Keywords
	}

	if override.Store.Driver != "" {
		base.Store.Driver = override.Store.Driver
	}
	if override.Store.Path != "" {
		base.Store.Path = override.Store.Path
	}
	if override.Store.DSN != "" {
		base.Store.DSN = override.Store.DSN
	}
	if override.Store.Table != "" {
		base.Store.Table = override.Store.Table
	}

	if override.Eligibility.WindowDays != 0 {
		base.Eligibility.WindowDays = override.Eligibility.WindowDays
	}

	if len(override.Notifications.Channels) > 0 {
		base.Notifications.Channels = override.Notifications.Channels
	}
	if override.Notifications.SubjectPrefix != "" {
		base.Notifications.SubjectPrefix = override.Notifications.SubjectPrefix
	}
	base.Notifications.Email = mergeEmail(base.Notifications.Email, override.Notifications.Email)
	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.RunOnStart {
		base.Scheduler.RunOnStart = true
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}
	if override.Logging.MaxSizeMB > 0 {
		base.Logging.MaxSizeMB = override.Logging.MaxSizeMB
	}
	if override.Logging.MaxBackups > 0 {
		base.Logging.MaxBackups = override.Logging.MaxBackups
	}

	return base
}

func mergeEmail(base, override EmailConfig) EmailConfig {
	if override.Host != "" {
		base.Host = override.Host
	}
	if override.Port != 0 {
		base.Port = override.Port
	}
	if override.Username != "" {
		base.Username = override.Username
	}
	if override.Password != "" {
		base.Password = override.Password
	}
	if override.From != "" {
		base.From = override.From
	}
	if len(override.To) > 0 {
		base.To = override.To
	}
	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}
	return base
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Source: SourceConfig{
			URL:     "https://news.zhibo8.cc/zuqiu/",
			Parser:  "zhibo8",
			Timeout: 10 * time.Second,
		},
		Keywords: []string{"梅西", "阿根廷"},
		Store: StoreConfig{
			Driver: StoreDriverCSV,
			Path:   "messi_argentina_news.csv",
			Table:  "news_records",
		},
		Eligibility: EligibilityConfig{WindowDays: 2},
		Notifications: NotificationConfig{
			Channels:      []string{ChannelEmail},
			SubjectPrefix: "News digest",
			Email: EmailConfig{
				Host:    "smtp.mail.me.com",
				Port:    587,
				Timeout: 30 * time.Second,
			},
		},
		Scheduler: SchedulerConfig{CronExpression: "0 */6 * * *", Timezone: defaultTimezone, location: tz},
		Logging:   LoggingConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3},
	}
}
