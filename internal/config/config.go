// Package config loads and validates monitor configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	NtfyTopic        string         `mapstructure:"ntfy_topic"`
	NtfyBaseURL      string         `mapstructure:"ntfy_base_url"`
	CheckIntervalMin int            `mapstructure:"check_interval_min"`
	CheckIntervalMax int            `mapstructure:"check_interval_max"`
	ScheduleDay      int            `mapstructure:"schedule_day"`
	ScheduleHour     int            `mapstructure:"schedule_hour"`
	Server           ServerConfig   `mapstructure:"server"`
	Logging          LoggingConfig  `mapstructure:"logging"`
	Monitor          MonitorConfig  `mapstructure:"monitor"`
	Headless         HeadlessConfig `mapstructure:"headless"`
}

// ServerConfig controls the observability HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MonitorConfig governs check-cycle and monitoring-loop behavior.
// The wait/settle/threshold values are heuristics inherited from the
// portal's observed behavior, not hard contracts.
type MonitorConfig struct {
	PacksURL                   string `mapstructure:"packs_url"`
	TargetText                 string `mapstructure:"target_text"`
	ElementWaitSeconds         int    `mapstructure:"element_wait_seconds"`
	SettleDelaySeconds         int    `mapstructure:"settle_delay_seconds"`
	ShortPageThreshold         int    `mapstructure:"short_page_threshold"`
	LoginPollSeconds           int    `mapstructure:"login_poll_seconds"`
	ReminderCount              int    `mapstructure:"reminder_count"`
	ReminderSpacingSeconds     int    `mapstructure:"reminder_spacing_seconds"`
	SessionRetryBackoffSeconds int    `mapstructure:"session_retry_backoff_seconds"`
	LoginHint                  string `mapstructure:"login_hint"`
}

// HeadlessConfig configures the browser session subsystem.
type HeadlessConfig struct {
	ProfileDir        string `mapstructure:"profile_dir"`
	UserAgent         string `mapstructure:"user_agent"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
}

// Load builds a Config from disk/environment. A missing config file is not
// an error; defaults and environment variables apply. A file that exists but
// cannot be parsed is an error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VOUCHERWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ntfy_topic", "edp-voucher")
	v.SetDefault("ntfy_base_url", "https://ntfy.sh")
	v.SetDefault("check_interval_min", 240)
	v.SetDefault("check_interval_max", 360)
	v.SetDefault("schedule_day", 1)
	v.SetDefault("schedule_hour", 0)
	v.SetDefault("server.port", 9091)
	v.SetDefault("logging.development", true)
	v.SetDefault("monitor.packs_url", "https://particulares.cliente.edp.pt/beneficios/pack")
	v.SetDefault("monitor.target_text", "pingo doce")
	v.SetDefault("monitor.element_wait_seconds", 20)
	v.SetDefault("monitor.settle_delay_seconds", 5)
	v.SetDefault("monitor.short_page_threshold", 500)
	v.SetDefault("monitor.login_poll_seconds", 60)
	v.SetDefault("monitor.reminder_count", 10)
	v.SetDefault("monitor.reminder_spacing_seconds", 60)
	v.SetDefault("monitor.session_retry_backoff_seconds", 30)
	v.SetDefault("monitor.login_hint", "Login necessario! Abre noVNC porta 6080")
	v.SetDefault("headless.profile_dir", "data/chrome-profile")
	v.SetDefault("headless.user_agent", "")
	v.SetDefault("headless.nav_timeout_seconds", 45)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.NtfyTopic == "" {
		return fmt.Errorf("ntfy_topic must be set")
	}
	if c.CheckIntervalMin <= 0 {
		return fmt.Errorf("check_interval_min must be > 0")
	}
	if c.CheckIntervalMax < c.CheckIntervalMin {
		return fmt.Errorf("check_interval_max must be >= check_interval_min")
	}
	if c.ScheduleDay < 1 || c.ScheduleDay > 31 {
		return fmt.Errorf("schedule_day must be in [1, 31]")
	}
	if c.ScheduleHour < 0 || c.ScheduleHour > 23 {
		return fmt.Errorf("schedule_hour must be in [0, 23]")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Monitor.PacksURL == "" {
		return fmt.Errorf("monitor.packs_url must be set")
	}
	if c.Monitor.TargetText == "" {
		return fmt.Errorf("monitor.target_text must be set")
	}
	if c.Monitor.ElementWaitSeconds <= 0 {
		return fmt.Errorf("monitor.element_wait_seconds must be > 0")
	}
	if c.Monitor.LoginPollSeconds <= 0 {
		return fmt.Errorf("monitor.login_poll_seconds must be > 0")
	}
	if c.Monitor.ReminderCount < 0 {
		return fmt.Errorf("monitor.reminder_count must be >= 0")
	}
	return nil
}

// CheckInterval returns the configured polling interval bounds.
func (c Config) CheckInterval() (min, max time.Duration) {
	return time.Duration(c.CheckIntervalMin) * time.Second,
		time.Duration(c.CheckIntervalMax) * time.Second
}
