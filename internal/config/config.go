// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Browser connection modes.
const (
	BrowserModeLocal  = "local"
	BrowserModeRemote = "remote"
)

// MinRefreshInterval is the shortest pause allowed between two poll cycles.
const MinRefreshInterval = 10 * time.Second

// Config holds the entire application configuration. It is loaded once at
// startup and treated as read-only afterwards.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Site     SiteConfig     `mapstructure:"site" yaml:"site"`
	Poll     PollConfig     `mapstructure:"poll" yaml:"poll"`
	Notifier NotifierConfig `mapstructure:"notifier" yaml:"notifier"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig selects and tunes the automation endpoint.
type BrowserConfig struct {
	// Mode is either "local" (launch LocalPath) or "remote" (attach to RemoteURL).
	Mode         string   `mapstructure:"mode" yaml:"mode"`
	LocalPath    string   `mapstructure:"local_path" yaml:"local_path"`
	RemoteURL    string   `mapstructure:"remote_url" yaml:"remote_url"`
	Headless     bool     `mapstructure:"headless" yaml:"headless"`
	WindowWidth  int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int      `mapstructure:"window_height" yaml:"window_height"`
	Args         []string `mapstructure:"args" yaml:"args"`
	// ActionTimeout bounds browser calls that have no wait of their own (navigate, click, refresh).
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// SiteConfig describes the monitored application. Selectors and the token
// attribute are data, not logic.
type SiteConfig struct {
	URL               string `mapstructure:"url" yaml:"url"`
	Username          string `mapstructure:"username" yaml:"username"`
	Password          string `mapstructure:"password" yaml:"-"`
	UsernameSelector  string `mapstructure:"username_selector" yaml:"username_selector"`
	PasswordSelector  string `mapstructure:"password_selector" yaml:"password_selector"`
	ShortlistSelector string `mapstructure:"shortlist_selector" yaml:"shortlist_selector"`
	ControlSelector   string `mapstructure:"control_selector" yaml:"control_selector"`
	TokenAttribute    string `mapstructure:"token_attribute" yaml:"token_attribute"`
}

// PollConfig controls the pacing of the poll loop.
type PollConfig struct {
	// RefreshInterval is in seconds. Values below 10 are raised to 10.
	RefreshInterval int `mapstructure:"refresh_interval" yaml:"refresh_interval"`
}

// NotifierConfig configures the operator notification channel.
type NotifierConfig struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
	SMTPHost       string        `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort       int           `mapstructure:"smtp_port" yaml:"smtp_port"`
	SenderEmail    string        `mapstructure:"sender_email" yaml:"sender_email"`
	SenderPassword string        `mapstructure:"sender_password" yaml:"-"`
	SendTo         string        `mapstructure:"send_to" yaml:"send_to"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// RateLimit is the sustained number of messages per minute; Burst allows short spikes.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst     int     `mapstructure:"burst" yaml:"burst"`
}

// MetricsConfig configures the optional Prometheus and health endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
}

// RefreshPause returns the pause between poll cycles, floored at MinRefreshInterval.
func (p PollConfig) RefreshPause() time.Duration {
	d := time.Duration(p.RefreshInterval) * time.Second
	if d < MinRefreshInterval {
		return MinRefreshInterval
	}
	return d
}

// legacyKeys maps the flat keys of the original config.toml onto their structured home.
var legacyKeys = map[string]string{
	"local_path_to_webdriver":      "browser.local_path",
	"url_to_webdriver":             "browser.remote_url",
	"lbs_email_address":            "site.username",
	"lbs_password":                 "site.password",
	"notification_sender_email":    "notifier.sender_email",
	"notification_sender_password": "notifier.sender_password",
	"notification_send_to_email":   "notifier.send_to",
	"page_refresh_interval":        "poll.refresh_interval",
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "elective-grabber")
	v.SetDefault("logger.log_file", "logs/elective-grabber.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 30)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.mode", BrowserModeRemote)
	v.SetDefault("browser.local_path", "")
	v.SetDefault("browser.remote_url", "ws://localhost:9222")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.window_width", 1600)
	v.SetDefault("browser.window_height", 2000)
	v.SetDefault("browser.action_timeout", "30s")

	// -- Site --
	v.SetDefault("site.url", "https://ebs.london.edu/ShortList")
	v.SetDefault("site.username", "")
	v.SetDefault("site.username_selector", "#i0116")
	v.SetDefault("site.password_selector", "#i0118")
	v.SetDefault("site.shortlist_selector", "#short-list-details-table-body")
	v.SetDefault("site.control_selector", ".add-course-stream-button")
	v.SetDefault("site.token_attribute", "onclick")

	// -- Poll --
	v.SetDefault("poll.refresh_interval", 10)

	// -- Notifier --
	v.SetDefault("notifier.enabled", true)
	v.SetDefault("notifier.smtp_host", "smtp.gmail.com")
	v.SetDefault("notifier.smtp_port", 465)
	v.SetDefault("notifier.sender_email", "")
	v.SetDefault("notifier.send_to", "")
	v.SetDefault("notifier.timeout", "30s")
	v.SetDefault("notifier.rate_limit", 20.0)
	v.SetDefault("notifier.burst", 5)

	// -- Metrics --
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "127.0.0.1:9464")
}

// ApplyLegacyKeys honors the flat keys of the original config file. A legacy
// value becomes the default of its structured key, so the structured key still
// wins when it is set in the file or the environment.
func ApplyLegacyKeys(v *viper.Viper) {
	for legacy, key := range legacyKeys {
		if v.IsSet(legacy) {
			v.SetDefault(key, v.Get(legacy))
		}
	}
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	_ = v.BindEnv("site.password", "GRABBER_SITE_PASSWORD")
	_ = v.BindEnv("notifier.sender_password", "GRABBER_NOTIFIER_SENDER_PASSWORD")

	ApplyLegacyKeys(v)

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	var err error
	if c.Browser.LocalPath, err = homedir.Expand(c.Browser.LocalPath); err != nil {
		return fmt.Errorf("browser.local_path: %w", err)
	}
	if c.Logger.LogFile, err = homedir.Expand(c.Logger.LogFile); err != nil {
		return fmt.Errorf("logger.log_file: %w", err)
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Browser.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("browser: %w", err))
	}
	if err := c.Site.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("site: %w", err))
	}
	if err := c.Notifier.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("notifier: %w", err))
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errs = append(errs, errors.New("metrics.address is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

// Validate checks the browser connection settings.
func (b *BrowserConfig) Validate() error {
	switch strings.ToLower(b.Mode) {
	case BrowserModeLocal:
		if b.LocalPath == "" {
			return errors.New("local_path is required in local mode")
		}
	case BrowserModeRemote:
		if b.RemoteURL == "" {
			return errors.New("remote_url is required in remote mode")
		}
		if _, err := url.Parse(b.RemoteURL); err != nil {
			return fmt.Errorf("remote_url is not a valid URL: %w", err)
		}
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", BrowserModeLocal, BrowserModeRemote, b.Mode)
	}
	if b.WindowWidth <= 0 || b.WindowHeight <= 0 {
		return errors.New("window_width and window_height must be positive")
	}
	return nil
}

// Validate checks the monitored site settings.
func (s *SiteConfig) Validate() error {
	if s.URL == "" {
		return errors.New("url is required")
	}
	if s.Username == "" || s.Password == "" {
		return errors.New("username and password are required")
	}
	if s.ShortlistSelector == "" || s.ControlSelector == "" || s.TokenAttribute == "" {
		return errors.New("shortlist_selector, control_selector, and token_attribute are required")
	}
	if s.UsernameSelector == "" || s.PasswordSelector == "" {
		return errors.New("username_selector and password_selector are required")
	}
	return nil
}

// Validate checks the notifier settings. A disabled notifier is always valid.
func (n *NotifierConfig) Validate() error {
	if !n.Enabled {
		return nil
	}
	if n.SMTPHost == "" || n.SMTPPort <= 0 {
		return errors.New("smtp_host and a positive smtp_port are required")
	}
	if _, err := mail.ParseAddress(n.SenderEmail); err != nil {
		return fmt.Errorf("sender_email is invalid: %w", err)
	}
	if _, err := mail.ParseAddress(n.SendTo); err != nil {
		return fmt.Errorf("send_to is invalid: %w", err)
	}
	if n.SenderPassword == "" {
		return errors.New("sender_password is required. Ensure GRABBER_NOTIFIER_SENDER_PASSWORD is set")
	}
	if n.RateLimit <= 0 || n.Burst <= 0 {
		return errors.New("rate_limit and burst must be positive")
	}
	return nil
}
