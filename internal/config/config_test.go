package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nudge.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := load(path, noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Sweep.TaskSchedule != "0 * * * *" || cfg.Sweep.EventSchedule != "*/30 * * * *" {
		t.Errorf("schedules = %q, %q", cfg.Sweep.TaskSchedule, cfg.Sweep.EventSchedule)
	}
	if cfg.Monitor.Interval != 30*time.Second {
		t.Errorf("interval = %v", cfg.Monitor.Interval)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("load must not create the config file")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
listen: ":9000"
database: /var/lib/nudge/nudge.db
timezone: America/Denver
monitor:
  interval: 15s
sweep:
  task_schedule: "15 * * * *"
  rate_per_second: 2
email:
  service: postmark
  user: reminders@example.com
  pass: token
`)

	cfg, err := load(path, noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9000" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Monitor.Interval != 15*time.Second {
		t.Errorf("interval = %v", cfg.Monitor.Interval)
	}
	if cfg.Sweep.TaskSchedule != "15 * * * *" {
		t.Errorf("task schedule = %q", cfg.Sweep.TaskSchedule)
	}
	// Unset fields keep their defaults.
	if cfg.Sweep.EventSchedule != "*/30 * * * *" {
		t.Errorf("event schedule = %q", cfg.Sweep.EventSchedule)
	}
	if cfg.Email.Service != "postmark" || cfg.Email.Pass != "token" {
		t.Errorf("email = %+v", cfg.Email)
	}
	if cfg.Location().String() != "America/Denver" {
		t.Errorf("location = %v", cfg.Location())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "listen: \":9000\"\n")

	cfg, err := load(path, envMap(map[string]string{
		"NUDGE_LISTEN":           ":7000",
		"NUDGE_JWT_SECRET":       "shh",
		"NUDGE_MONITOR_INTERVAL": "1m",
		"EMAIL_SERVICE":          "postmark",
		"EMAIL_USER":             "a@example.com",
		"EMAIL_PASS":             "p",
		"NUDGE_LOG_LEVEL":        "",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":7000" {
		t.Errorf("listen = %q, want env value", cfg.Listen)
	}
	if cfg.JWTSecret != "shh" {
		t.Errorf("jwt secret = %q", cfg.JWTSecret)
	}
	if cfg.Monitor.Interval != time.Minute {
		t.Errorf("interval = %v", cfg.Monitor.Interval)
	}
	if cfg.Email.User != "a@example.com" {
		t.Errorf("email user = %q", cfg.Email.User)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("empty env value should not override, got %q", cfg.LogLevel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
		want string
	}{
		{"bad cron", "sweep:\n  task_schedule: \"every hour\"\n", nil, "task_schedule"},
		{"bad timezone", "timezone: Mars/Olympus\n", nil, "timezone"},
		{"bad interval", "", map[string]string{"NUDGE_MONITOR_INTERVAL": "soon"}, "NUDGE_MONITOR_INTERVAL"},
		{"bad yaml", "listen: [", nil, "parse config"},
		{"unsupported email service", "", map[string]string{"EMAIL_SERVICE": "gmail"}, "email.service"},
		{"bad sweep timeout", "", map[string]string{"NUDGE_SWEEP_TIMEOUT": "later"}, "NUDGE_SWEEP_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(writeConfig(t, tt.yaml), envMap(tt.env))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	cfg := &Config{Listen: ":1"}
	cfg.Normalize()
	if cfg.Listen != ":1" {
		t.Errorf("listen overwritten: %q", cfg.Listen)
	}
	if cfg.Database != "nudge.db" || cfg.API.Burst != 40 || cfg.Monitor.Interval <= 0 {
		t.Errorf("normalized = %+v", cfg)
	}
}

func TestEmailConfigured(t *testing.T) {
	cfg := Default()
	if cfg.EmailConfigured() {
		t.Error("defaults should not enable email")
	}
	cfg.Email = EmailConfig{Service: "postmark", User: "u", Pass: "p"}
	if !cfg.EmailConfigured() {
		t.Error("service, user and pass should enable email")
	}
	cfg.Email.Pass = ""
	if cfg.EmailConfigured() {
		t.Error("missing pass should disable email")
	}
}

func TestEmailServiceNormalized(t *testing.T) {
	cfg, err := load(writeConfig(t, "email:\n  service: \" Postmark \"\n"), noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Email.Service != "postmark" {
		t.Errorf("service = %q, want postmark", cfg.Email.Service)
	}
}

func TestSweepTimeout(t *testing.T) {
	cfg, err := load("", noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sweep.Timeout != 10*time.Minute {
		t.Errorf("default timeout = %v", cfg.Sweep.Timeout)
	}
	cfg, err = load("", envMap(map[string]string{"NUDGE_SWEEP_TIMEOUT": "90s"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sweep.Timeout != 90*time.Second {
		t.Errorf("timeout = %v, want 90s", cfg.Sweep.Timeout)
	}
}
