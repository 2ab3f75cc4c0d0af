// File: internal/config/config_test.go
package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 30, cfg.Logger.MaxBackups)
	assert.Equal(t, BrowserModeRemote, cfg.Browser.Mode)
	assert.Equal(t, 1600, cfg.Browser.WindowWidth)
	assert.Equal(t, 2000, cfg.Browser.WindowHeight)
	assert.Equal(t, 30*time.Second, cfg.Browser.ActionTimeout)
	assert.Equal(t, "https://ebs.london.edu/ShortList", cfg.Site.URL)
	assert.Equal(t, "#short-list-details-table-body", cfg.Site.ShortlistSelector)
	assert.Equal(t, ".add-course-stream-button", cfg.Site.ControlSelector)
	assert.Equal(t, "onclick", cfg.Site.TokenAttribute)
	assert.Equal(t, 465, cfg.Notifier.SMTPPort)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestPollConfig_RefreshPause(t *testing.T) {
	tests := []struct {
		interval int
		want     time.Duration
	}{
		{-30, 10 * time.Second},
		{0, 10 * time.Second},
		{3, 10 * time.Second},
		{10, 10 * time.Second},
		{45, 45 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PollConfig{RefreshInterval: tt.interval}.RefreshPause(), "interval %d", tt.interval)
	}
}

// -- Loading Tests --

func loadYAML(t *testing.T, doc string) (*Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(doc)))
	return NewConfigFromViper(v)
}

const validYAML = `
site:
  username: student@london.edu
  password: hunter2
notifier:
  sender_email: bot@example.com
  sender_password: app-password
  send_to: me@example.com
poll:
  refresh_interval: 60
`

func TestNewConfigFromViper_Valid(t *testing.T) {
	cfg, err := loadYAML(t, validYAML)
	require.NoError(t, err)

	assert.Equal(t, "student@london.edu", cfg.Site.Username)
	assert.Equal(t, "hunter2", cfg.Site.Password)
	assert.Equal(t, 60, cfg.Poll.RefreshInterval)
	assert.Equal(t, "me@example.com", cfg.Notifier.SendTo)
}

func TestNewConfigFromViper_LegacyFlatKeys(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("toml")
	legacy := strings.Join([]string{
		`local_path_to_webdriver = "/usr/bin/chromium"`,
		`url_to_webdriver = "ws://selenium:9222"`,
		`lbs_email_address = "student@london.edu"`,
		`lbs_password = "hunter2"`,
		`notification_sender_email = "bot@example.com"`,
		`notification_sender_password = "app-password"`,
		`notification_send_to_email = "me@example.com"`,
		`page_refresh_interval = 5`,
	}, "\n")
	require.NoError(t, v.ReadConfig(strings.NewReader(legacy)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.LocalPath)
	assert.Equal(t, "ws://selenium:9222", cfg.Browser.RemoteURL)
	assert.Equal(t, "student@london.edu", cfg.Site.Username)
	assert.Equal(t, "hunter2", cfg.Site.Password)
	assert.Equal(t, "bot@example.com", cfg.Notifier.SenderEmail)
	assert.Equal(t, "app-password", cfg.Notifier.SenderPassword)
	assert.Equal(t, "me@example.com", cfg.Notifier.SendTo)
	assert.Equal(t, 5, cfg.Poll.RefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.Poll.RefreshPause())
}

func TestNewConfigFromViper_StructuredKeyWinsOverLegacy(t *testing.T) {
	doc := validYAML + "page_refresh_interval: 300\n"
	cfg, err := loadYAML(t, doc)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Poll.RefreshInterval)
}

func TestNewConfigFromViper_SecretFromEnv(t *testing.T) {
	t.Setenv("GRABBER_SITE_PASSWORD", "from-env")
	doc := strings.Replace(validYAML, "  password: hunter2\n", "", 1)

	cfg, err := loadYAML(t, doc)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Site.Password)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	valid := func(t *testing.T) *Config {
		t.Helper()
		cfg, err := loadYAML(t, validYAML)
		require.NoError(t, err)
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid(t).Validate())
	})

	t.Run("unknown browser mode", func(t *testing.T) {
		cfg := valid(t)
		cfg.Browser.Mode = "firefox"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mode must be")
	})

	t.Run("local mode needs a path", func(t *testing.T) {
		cfg := valid(t)
		cfg.Browser.Mode = BrowserModeLocal
		cfg.Browser.LocalPath = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "local_path is required")
	})

	t.Run("missing credentials", func(t *testing.T) {
		cfg := valid(t)
		cfg.Site.Password = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "username and password are required")
	})

	t.Run("invalid recipient", func(t *testing.T) {
		cfg := valid(t)
		cfg.Notifier.SendTo = "not an address"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "send_to is invalid")
	})

	t.Run("disabled notifier skips checks", func(t *testing.T) {
		cfg := valid(t)
		cfg.Notifier.Enabled = false
		cfg.Notifier.SenderPassword = ""
		assert.NoError(t, cfg.Validate())
	})

	t.Run("metrics need an address", func(t *testing.T) {
		cfg := valid(t)
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "metrics.address is required")
	})

	t.Run("errors are joined", func(t *testing.T) {
		cfg := valid(t)
		cfg.Site.URL = ""
		cfg.Browser.WindowWidth = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "url is required")
		assert.Contains(t, err.Error(), "window_width and window_height must be positive")
	})
}
