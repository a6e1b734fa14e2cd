package internal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/11bdev/sitrep/testutil"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LookbackDays != 7 {
		t.Errorf("LookbackDays = %d, want 7", cfg.LookbackDays)
	}
	if cfg.Retention != 30*24*time.Hour {
		t.Errorf("Retention = %v, want 720h", cfg.Retention)
	}
	if cfg.CodeHost.EventsPerPage != 50 || cfg.CodeHost.ReposPerPage != 30 {
		t.Errorf("page sizes = %d/%d, want 50/30", cfg.CodeHost.EventsPerPage, cfg.CodeHost.ReposPerPage)
	}
	if cfg.Relay.Linger != 8*time.Second || cfg.Relay.Timeout != 10*time.Second {
		t.Errorf("relay timers = %v/%v, want 8s/10s", cfg.Relay.Linger, cfg.Relay.Timeout)
	}
	if cfg.Relay.Limit != 50 {
		t.Errorf("Relay.Limit = %d, want 50", cfg.Relay.Limit)
	}
	if len(cfg.Relay.Relays) != 3 {
		t.Errorf("len(Relay.Relays) = %d, want 3", len(cfg.Relay.Relays))
	}
	if cfg.Lookback() != 7*24*time.Hour {
		t.Errorf("Lookback() = %v, want 168h", cfg.Lookback())
	}

	cfg.Database = "/tmp/x.db"
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestLoadConfig_YAMLAndEnv(t *testing.T) {
	tmpDir := testutil.CreateTempDir(t)

	path := filepath.Join(tmpDir, "sitrep.yaml")
	yamlData := `
database: ` + filepath.Join(tmpDir, "feed.db") + `
lookback_days: 3
retention: 240h
code_host:
  org: acme
  events_per_page: 20
relay:
  hashtag: "#acme"
  linger: 2s
  relays:
    - ws://127.0.0.1:7777
`
	testutil.WriteFixtureFile(t, path, []byte(yamlData))

	t.Setenv("SITREP_CODE_HOST_TOKEN", "secret")
	t.Setenv("SITREP_RELAY_LIMIT", "10")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.LookbackDays != 3 {
		t.Errorf("LookbackDays = %d, want 3", cfg.LookbackDays)
	}
	if cfg.Retention != 240*time.Hour {
		t.Errorf("Retention = %v, want 240h", cfg.Retention)
	}
	if cfg.CodeHost.Org != "acme" {
		t.Errorf("CodeHost.Org = %q, want acme", cfg.CodeHost.Org)
	}
	if cfg.CodeHost.EventsPerPage != 20 {
		t.Errorf("CodeHost.EventsPerPage = %d, want 20", cfg.CodeHost.EventsPerPage)
	}
	if cfg.CodeHost.ReposPerPage != 30 {
		t.Errorf("CodeHost.ReposPerPage = %d, want default 30", cfg.CodeHost.ReposPerPage)
	}
	if cfg.CodeHost.Token != "secret" {
		t.Errorf("CodeHost.Token = %q, want env override", cfg.CodeHost.Token)
	}
	if cfg.Relay.Limit != 10 {
		t.Errorf("Relay.Limit = %d, want env override 10", cfg.Relay.Limit)
	}
	if cfg.Relay.Linger != 2*time.Second {
		t.Errorf("Relay.Linger = %v, want 2s", cfg.Relay.Linger)
	}
	if cfg.Relay.Timeout != 10*time.Second {
		t.Errorf("Relay.Timeout = %v, want default 10s", cfg.Relay.Timeout)
	}
	if len(cfg.Relay.Relays) != 1 || cfg.Relay.Relays[0] != "ws://127.0.0.1:7777" {
		t.Errorf("Relay.Relays = %v, want [ws://127.0.0.1:7777]", cfg.Relay.Relays)
	}
}

func TestLoadConfig_GitHubTokenFallback(t *testing.T) {
	t.Setenv("SITREP_DATABASE", "/tmp/sitrep-test.db")
	t.Setenv("SITREP_CODE_HOST_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "from-github-env")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.CodeHost.Token != "from-github-env" {
		t.Errorf("CodeHost.Token = %q, want GITHUB_TOKEN fallback", cfg.CodeHost.Token)
	}
	if cfg.Database != "/tmp/sitrep-test.db" {
		t.Errorf("Database = %q, want env override", cfg.Database)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(os.TempDir(), "does-not-exist-sitrep.yaml"))
	if err == nil {
		t.Error("LoadConfig() should fail for a missing explicit config file")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{name: "zero lookback", mutate: func(c *Config) { c.LookbackDays = 0 }, wantField: "lookback_days"},
		{name: "negative retention", mutate: func(c *Config) { c.Retention = -time.Hour }, wantField: "retention"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantField: "log_level"},
		{name: "empty org", mutate: func(c *Config) { c.CodeHost.Org = " " }, wantField: "code_host.org"},
		{name: "bad base url", mutate: func(c *Config) { c.CodeHost.BaseURL = "ftp://x" }, wantField: "code_host.base_url"},
		{name: "page too large", mutate: func(c *Config) { c.CodeHost.EventsPerPage = 500 }, wantField: "code_host.events_per_page"},
		{name: "no relays", mutate: func(c *Config) { c.Relay.Relays = nil }, wantField: "relay.relays"},
		{name: "http relay", mutate: func(c *Config) { c.Relay.Relays = []string{"https://relay.example"} }, wantField: "relay.relays"},
		{name: "zero linger", mutate: func(c *Config) { c.Relay.Linger = 0 }, wantField: "relay.linger"},
		{name: "zero timeout", mutate: func(c *Config) { c.Relay.Timeout = 0 }, wantField: "relay.timeout"},
		{name: "empty hashtag", mutate: func(c *Config) { c.Relay.Hashtag = "" }, wantField: "relay.hashtag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error = %T, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("ConfigError.Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error %q should mention %q", err.Error(), tt.wantField)
			}
		})
	}
}
