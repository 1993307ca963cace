package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: debug
  console: true
watch:
  interval: 30s
  keyword: Health Physicist
  location_name: Portsmouth, Virginia
  radius: 25
  pay_grade_low: 13
  results_per_page: 50
subscribers:
  path: ./data/user_data.json
audit:
  driver: file
  path: ./data/audit
`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Watch.Keyword != "Health Physicist" {
		t.Fatalf("Watch.Keyword = %q", cfg.Watch.Keyword)
	}
	if cfg.Watch.Radius != 25 || cfg.Watch.PayGradeLow != 13 {
		t.Fatalf("unexpected search params: %+v", cfg.Watch)
	}
	if cfg.Audit == nil || cfg.Audit.Driver != "file" {
		t.Fatalf("unexpected audit config: %+v", cfg.Audit)
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json",
		`{"watch": {"interval": "1m", "keyword": "librarian", "location_name": "Denver"}}`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	d, err := ParseDurationOrDefault("watch.interval", cfg.Watch.Interval, 0)
	if err != nil || d.String() != "1m0s" {
		t.Fatalf("interval = %v (err %v), want 1m0s", d, err)
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown field", body: `{"watch": {"keyword": "x"}, "refresh": 60}`},
		{name: "bad duration", body: `{"watch": {"keyword": "x", "interval": "soon"}}`},
		{name: "missing keyword", body: `{"watch": {"interval": "30s"}}`},
		{name: "trailing data", body: `{"watch": {"keyword": "x"}}{}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, "config.json", tt.body)
			if _, err := NewManager(path).Parse(); err == nil {
				t.Fatalf("Parse accepted %s", tt.name)
			}
		})
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("USAJOBS_AUTHORIZATION_KEY", "key")
	t.Setenv("USAJOBS_USER_AGENT", "someone@example.com")

	c, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if c.TelegramToken != "123:abc" || c.USAJobsAuthKey != "key" {
		t.Fatalf("unexpected credentials: %+v", c)
	}
}

func TestLoadCredentialsMissing(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("USAJOBS_AUTHORIZATION_KEY", "key")
	// t.Setenv registers the restore; unset to simulate a missing variable.
	t.Setenv("USAJOBS_USER_AGENT", "x")
	os.Unsetenv("USAJOBS_USER_AGENT")

	if _, err := LoadCredentials(); err == nil {
		t.Fatal("expected error for missing USAJOBS_USER_AGENT")
	}
}
