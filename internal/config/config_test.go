package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.NtfyTopic != "edp-voucher" {
		t.Fatalf("expected default topic, got %q", cfg.NtfyTopic)
	}
	if cfg.CheckIntervalMin != 240 || cfg.CheckIntervalMax != 360 {
		t.Fatalf("expected default intervals 240/360, got %d/%d", cfg.CheckIntervalMin, cfg.CheckIntervalMax)
	}
	if cfg.ScheduleDay != 1 || cfg.ScheduleHour != 0 {
		t.Fatalf("expected default schedule 1/0, got %d/%d", cfg.ScheduleDay, cfg.ScheduleHour)
	}
	if cfg.Monitor.ReminderCount != 10 {
		t.Fatalf("expected 10 reminders, got %d", cfg.Monitor.ReminderCount)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.NtfyTopic != "edp-voucher" {
		t.Fatalf("expected defaults on missing file, got topic %q", cfg.NtfyTopic)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
ntfy_topic: my-topic
check_interval_min: 60
check_interval_max: 120
schedule_day: 15
schedule_hour: 9
server:
  port: 8088
logging:
  development: false
monitor:
  target_text: outro parceiro
  element_wait_seconds: 10
  settle_delay_seconds: 2
  reminder_count: 3
headless:
  profile_dir: /tmp/profile
  nav_timeout_seconds: 30
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.NtfyTopic != "my-topic" {
		t.Fatalf("expected topic override, got %q", cfg.NtfyTopic)
	}
	if cfg.CheckIntervalMin != 60 || cfg.CheckIntervalMax != 120 {
		t.Fatalf("expected interval overrides, got %d/%d", cfg.CheckIntervalMin, cfg.CheckIntervalMax)
	}
	if cfg.ScheduleDay != 15 || cfg.ScheduleHour != 9 {
		t.Fatalf("expected schedule overrides, got %d/%d", cfg.ScheduleDay, cfg.ScheduleHour)
	}
	if cfg.Server.Port != 8088 {
		t.Fatalf("expected port 8088, got %d", cfg.Server.Port)
	}
	if cfg.Monitor.TargetText != "outro parceiro" || cfg.Monitor.ReminderCount != 3 {
		t.Fatalf("expected monitor overrides to apply: %+v", cfg.Monitor)
	}
	if cfg.Headless.ProfileDir != "/tmp/profile" {
		t.Fatalf("expected profile dir override, got %q", cfg.Headless.ProfileDir)
	}

	minIv, maxIv := cfg.CheckInterval()
	if minIv != time.Minute || maxIv != 2*time.Minute {
		t.Fatalf("expected interval durations 1m/2m, got %v/%v", minIv, maxIv)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		NtfyTopic:        "topic",
		CheckIntervalMin: 240,
		CheckIntervalMax: 360,
		ScheduleDay:      1,
		ScheduleHour:     0,
		Server:           ServerConfig{Port: 9091},
		Monitor: MonitorConfig{
			PacksURL:           "https://example.com/pack",
			TargetText:         "pingo doce",
			ElementWaitSeconds: 20,
			LoginPollSeconds:   60,
		},
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "missing topic", mutate: func(c *Config) { c.NtfyTopic = "" }, want: "ntfy_topic"},
		{name: "zero interval min", mutate: func(c *Config) { c.CheckIntervalMin = 0 }, want: "check_interval_min"},
		{name: "max below min", mutate: func(c *Config) { c.CheckIntervalMax = 100 }, want: "check_interval_max"},
		{name: "day too large", mutate: func(c *Config) { c.ScheduleDay = 32 }, want: "schedule_day"},
		{name: "day too small", mutate: func(c *Config) { c.ScheduleDay = 0 }, want: "schedule_day"},
		{name: "hour out of range", mutate: func(c *Config) { c.ScheduleHour = 24 }, want: "schedule_hour"},
		{name: "missing packs url", mutate: func(c *Config) { c.Monitor.PacksURL = "" }, want: "monitor.packs_url"},
		{name: "missing target text", mutate: func(c *Config) { c.Monitor.TargetText = "" }, want: "monitor.target_text"},
		{name: "negative reminders", mutate: func(c *Config) { c.Monitor.ReminderCount = -1 }, want: "monitor.reminder_count"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
