package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "SITREP_"

// CodeHostConfig configures the GitHub organization adapter
type CodeHostConfig struct {
	BaseURL       string        `yaml:"base_url" env:"BASE_URL"`
	WebURL        string        `yaml:"web_url" env:"WEB_URL"`
	Org           string        `yaml:"org" env:"ORG"`
	Token         string        `yaml:"token" env:"TOKEN"`
	EventsPerPage int           `yaml:"events_per_page" env:"EVENTS_PER_PAGE"`
	ReposPerPage  int           `yaml:"repos_per_page" env:"REPOS_PER_PAGE"`
	BodyLimit     int           `yaml:"body_limit" env:"BODY_LIMIT"`
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT"`
	UserAgent     string        `yaml:"user_agent" env:"USER_AGENT"`
}

// RelayConfig configures the relay-network adapter
type RelayConfig struct {
	NPub      string        `yaml:"npub" env:"NPUB"`
	Hashtag   string        `yaml:"hashtag" env:"HASHTAG"`
	Relays    []string      `yaml:"relays" env:"RELAYS" envSeparator:","`
	Linger    time.Duration `yaml:"linger" env:"LINGER"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Limit     int           `yaml:"limit" env:"LIMIT"`
	BodyLimit int           `yaml:"body_limit" env:"BODY_LIMIT"`
	ViewerURL string        `yaml:"viewer_url" env:"VIEWER_URL"`
	Origin    string        `yaml:"origin" env:"ORIGIN"`
}

// Config is the full runtime configuration
type Config struct {
	Database     string         `yaml:"database" env:"DATABASE"`
	LogLevel     string         `yaml:"log_level" env:"LOG_LEVEL"`
	LookbackDays int            `yaml:"lookback_days" env:"LOOKBACK_DAYS"`
	Retention    time.Duration  `yaml:"retention" env:"RETENTION"`
	CodeHost     CodeHostConfig `yaml:"code_host" envPrefix:"CODE_HOST_"`
	Relay        RelayConfig    `yaml:"relay" envPrefix:"RELAY_"`
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() Config {
	return Config{
		LogLevel:     "info",
		LookbackDays: 7,
		Retention:    30 * 24 * time.Hour,
		CodeHost: CodeHostConfig{
			BaseURL:       "https://api.github.com",
			WebURL:        "https://github.com",
			Org:           "11bDev-FOB",
			EventsPerPage: 50,
			ReposPerPage:  30,
			BodyLimit:     200,
			Timeout:       15 * time.Second,
			UserAgent:     "sitrep",
		},
		Relay: RelayConfig{
			NPub:    "npub13hyx3qsqk3r7ctjqrr49uskut4yqjsxt8uvu4rekr55p08wyhf0qq90nt7",
			Hashtag: "#11bdev",
			Relays: []string{
				"wss://relay.damus.io",
				"wss://relay.primal.net",
				"wss://premium.primal.net",
			},
			Linger:    8 * time.Second,
			Timeout:   10 * time.Second,
			Limit:     50,
			BodyLimit: 300,
			ViewerURL: "https://njump.me",
			Origin:    "https://sitrep.local",
		},
	}
}

// DefaultDBPath returns ~/.sitrep/sitrep.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".sitrep", "sitrep.db"), nil
}

// LoadConfig builds a Config from defaults, an optional YAML file and
// SITREP_* environment variables, in that order of precedence.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.CodeHost.Token == "" {
		cfg.CodeHost.Token = os.Getenv("GITHUB_TOKEN")
	}

	if cfg.Database == "" {
		dbPath, err := DefaultDBPath()
		if err != nil {
			return Config{}, err
		}
		cfg.Database = dbPath
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid field
func (c Config) Validate() error {
	if c.LookbackDays <= 0 {
		return &ConfigError{Field: "lookback_days", Err: errors.New("must be positive")}
	}
	if c.Retention <= 0 {
		return &ConfigError{Field: "retention", Err: errors.New("must be positive")}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return &ConfigError{Field: "log_level", Err: err}
	}

	ch := c.CodeHost
	if strings.TrimSpace(ch.Org) == "" {
		return &ConfigError{Field: "code_host.org", Err: errors.New("is required")}
	}
	if err := validateURL(ch.BaseURL, "http", "https"); err != nil {
		return &ConfigError{Field: "code_host.base_url", Err: err}
	}
	if ch.EventsPerPage <= 0 || ch.EventsPerPage > 100 {
		return &ConfigError{Field: "code_host.events_per_page", Err: errors.New("must be between 1 and 100")}
	}
	if ch.ReposPerPage <= 0 || ch.ReposPerPage > 100 {
		return &ConfigError{Field: "code_host.repos_per_page", Err: errors.New("must be between 1 and 100")}
	}
	if ch.BodyLimit <= 3 {
		return &ConfigError{Field: "code_host.body_limit", Err: errors.New("must be greater than 3")}
	}

	r := c.Relay
	if len(r.Relays) == 0 {
		return &ConfigError{Field: "relay.relays", Err: errors.New("at least one relay is required")}
	}
	for _, u := range r.Relays {
		if err := validateURL(u, "ws", "wss"); err != nil {
			return &ConfigError{Field: "relay.relays", Err: err}
		}
	}
	if r.Linger <= 0 {
		return &ConfigError{Field: "relay.linger", Err: errors.New("must be positive")}
	}
	if r.Timeout <= 0 {
		return &ConfigError{Field: "relay.timeout", Err: errors.New("must be positive")}
	}
	if r.Limit <= 0 {
		return &ConfigError{Field: "relay.limit", Err: errors.New("must be positive")}
	}
	if r.BodyLimit <= 3 {
		return &ConfigError{Field: "relay.body_limit", Err: errors.New("must be greater than 3")}
	}
	if strings.TrimSpace(r.Hashtag) == "" {
		return &ConfigError{Field: "relay.hashtag", Err: errors.New("is required")}
	}
	return nil
}

// Lookback converts LookbackDays into a duration
func (c Config) Lookback() time.Duration {
	return time.Duration(c.LookbackDays) * 24 * time.Hour
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("invalid url %q: scheme must be one of %s", raw, strings.Join(schemes, ", "))
}
