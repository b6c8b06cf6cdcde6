package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/dukerupert/nudge/internal/email"
)

type MonitorConfig struct {
	// Interval between local reminder passes.
	Interval time.Duration `yaml:"interval"`
}

type SweepConfig struct {
	TaskSchedule  string  `yaml:"task_schedule"`
	EventSchedule string  `yaml:"event_schedule"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	// Timeout bounds one scheduled sweep run.
	Timeout time.Duration `yaml:"timeout"`
}

type APIConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

// EmailConfig names the mail service and its credentials. Reminder emails
// are sent only when Service, User and Pass are all set. Postmark is the only
// service.
type EmailConfig struct {
	Service string `yaml:"service"`
	User    string `yaml:"user"`
	Pass    string `yaml:"pass"`
	From    string `yaml:"from"`
}

type PushConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	Subscriber      string `yaml:"subscriber"`
}

type Config struct {
	Listen    string `yaml:"listen"`
	Database  string `yaml:"database"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	// Timezone is the IANA zone that defines "today" for the task sweep and
	// the dates printed in reminder emails.
	Timezone  string `yaml:"timezone"`
	JWTSecret string `yaml:"jwt_secret"`

	Monitor MonitorConfig `yaml:"monitor"`
	Sweep   SweepConfig   `yaml:"sweep"`
	API     APIConfig     `yaml:"api"`
	Email   EmailConfig   `yaml:"email"`
	Push    PushConfig    `yaml:"push"`
}

func Default() *Config {
	return &Config{
		Listen:    ":8080",
		Database:  "nudge.db",
		LogLevel:  "info",
		LogFormat: "text",
		Timezone:  "UTC",
		Monitor:   MonitorConfig{Interval: 30 * time.Second},
		Sweep: SweepConfig{
			TaskSchedule:  "0 * * * *",
			EventSchedule: "*/30 * * * *",
			RatePerSecond: 5,
			Timeout:       10 * time.Minute,
		},
		API: APIConfig{RatePerSecond: 20, Burst: 40},
	}
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	d := Default()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.Monitor.Interval <= 0 {
		c.Monitor.Interval = d.Monitor.Interval
	}
	if c.Sweep.TaskSchedule == "" {
		c.Sweep.TaskSchedule = d.Sweep.TaskSchedule
	}
	if c.Sweep.EventSchedule == "" {
		c.Sweep.EventSchedule = d.Sweep.EventSchedule
	}
	if c.Sweep.Timeout <= 0 {
		c.Sweep.Timeout = d.Sweep.Timeout
	}
	c.Email.Service = strings.ToLower(strings.TrimSpace(c.Email.Service))
	if c.API.RatePerSecond <= 0 {
		c.API.RatePerSecond = d.API.RatePerSecond
	}
	if c.API.Burst <= 0 {
		c.API.Burst = d.API.Burst
	}
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if _, err := cron.ParseStandard(c.Sweep.TaskSchedule); err != nil {
		return fmt.Errorf("sweep.task_schedule %q: %w", c.Sweep.TaskSchedule, err)
	}
	if _, err := cron.ParseStandard(c.Sweep.EventSchedule); err != nil {
		return fmt.Errorf("sweep.event_schedule %q: %w", c.Sweep.EventSchedule, err)
	}
	if c.Sweep.RatePerSecond < 0 {
		return errors.New("sweep.rate_per_second must not be negative")
	}
	if c.Email.Service != "" && c.Email.Service != email.ServicePostmark {
		return fmt.Errorf("email.service %q: only %q is supported", c.Email.Service, email.ServicePostmark)
	}
	return nil
}

// Location returns the configured time zone, UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EmailConfigured reports whether reminder emails can be sent.
func (c *Config) EmailConfigured() bool {
	return c.Email.Service != "" && c.Email.User != "" && c.Email.Pass != ""
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"NUDGE_LISTEN":            &c.Listen,
		"NUDGE_DB_PATH":           &c.Database,
		"NUDGE_LOG_LEVEL":         &c.LogLevel,
		"NUDGE_LOG_FORMAT":        &c.LogFormat,
		"NUDGE_TIMEZONE":          &c.Timezone,
		"NUDGE_JWT_SECRET":        &c.JWTSecret,
		"NUDGE_TASK_SCHEDULE":     &c.Sweep.TaskSchedule,
		"NUDGE_EVENT_SCHEDULE":    &c.Sweep.EventSchedule,
		"NUDGE_VAPID_PUBLIC_KEY":  &c.Push.VAPIDPublicKey,
		"NUDGE_VAPID_PRIVATE_KEY": &c.Push.VAPIDPrivateKey,
		"NUDGE_VAPID_SUBSCRIBER":  &c.Push.Subscriber,
		"EMAIL_SERVICE":           &c.Email.Service,
		"EMAIL_USER":              &c.Email.User,
		"EMAIL_PASS":              &c.Email.Pass,
		"EMAIL_FROM":              &c.Email.From,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("NUDGE_MONITOR_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NUDGE_MONITOR_INTERVAL: %w", err)
		}
		c.Monitor.Interval = d
	}
	if v, ok := lookup("NUDGE_SWEEP_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NUDGE_SWEEP_TIMEOUT: %w", err)
		}
		c.Sweep.Timeout = d
	}
	if v, ok := lookup("NUDGE_EMAIL_RATE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("NUDGE_EMAIL_RATE: %w", err)
		}
		c.Sweep.RatePerSecond = f
	}
	return nil
}
