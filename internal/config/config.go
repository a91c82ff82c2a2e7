package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Timezone   string   `yaml:"timezone"`
	Schedule   string   `yaml:"schedule"`
	Sources    Sources  `yaml:"sources"`
	Rules      Rules    `yaml:"rules"`
	Fetch      Fetch    `yaml:"fetch"`
	Digest     Digest   `yaml:"digest"`
	SMTP       SMTP     `yaml:"smtp"`
	Recipients []string `yaml:"recipients"`

	loc *time.Location
}

type Sources struct {
	Feeds  []Feed   `yaml:"feeds"`
	Scrape []Scrape `yaml:"scrape"`
}

type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type Scrape struct {
	Name      string    `yaml:"name"`
	URL       string    `yaml:"url"`
	Selectors Selectors `yaml:"selectors"`
}

// Selectors are CSS selectors applied to a listing page. Title is
// required; summary and date are looked up relative to each entry's
// container and may be empty.
type Selectors struct {
	Title   string `yaml:"title"`
	Summary string `yaml:"summary"`
	Date    string `yaml:"date"`
}

// Rules drive classification. Categories is an ordered list: earlier
// entries have higher priority both for category assignment and for
// digest selection.
type Rules struct {
	Negative   []string   `yaml:"negative"`
	Categories []Category `yaml:"categories"`
}

type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CategoryOrder returns category names in priority order.
func (r Rules) CategoryOrder() []string {
	names := make([]string, len(r.Categories))
	for i, c := range r.Categories {
		names[i] = c.Name
	}
	return names
}

type Fetch struct {
	Concurrency    int `yaml:"concurrency"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
	Retries        int `yaml:"retries"`
	BackoffSeconds int `yaml:"backoff_seconds"`
	MaxPerSource   int `yaml:"max_per_source"`
}

// Timeout returns the per-attempt fetch deadline.
func (f Fetch) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// Backoff returns the pause before a fetch retry.
func (f Fetch) Backoff() time.Duration {
	return time.Duration(f.BackoffSeconds) * time.Second
}

type Digest struct {
	Size          int `yaml:"size"`
	SummaryLength int `yaml:"summary_length"`
}

type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Ready reports whether SMTP is configured enough to attempt delivery.
func (s SMTP) Ready() bool {
	return s.Host != "" && s.Username != "" && s.Password != ""
}

// ConfigDir returns the XDG config directory for bantin.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "bantin")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/bantin/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'bantin init' to create a default config",
		xdgConfig,
	)
}

// Load reads a config YAML file, applies .env and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}

	loadDotenv()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Timezone: "Asia/Ho_Chi_Minh",
		Schedule: "0 7 * * *",
		Fetch: Fetch{
			Concurrency:    4,
			TimeoutSeconds: 20,
			Retries:        1,
			BackoffSeconds: 2,
			MaxPerSource:   200,
		},
		Digest: Digest{
			Size:          5,
			SummaryLength: 150,
		},
		SMTP: SMTP{Port: 587},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// loadDotenv pulls variables from .env files without overriding values
// already present in the environment.
func loadDotenv() {
	for _, path := range []string{".env", filepath.Join("config", ".env")} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
}

// applyEnv lets deployment secrets override the file values, matching
// the env contract the bot has always shipped with.
func (c *Config) applyEnv() error {
	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SMTP_PORT %q: %w", v, err)
		}
		c.SMTP.Port = port
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("EMAIL_RECIPIENTS"); v != "" {
		var recipients []string
		if err := json.Unmarshal([]byte(v), &recipients); err != nil {
			return fmt.Errorf("invalid EMAIL_RECIPIENTS %q: %w", v, err)
		}
		c.Recipients = recipients
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		c.Timezone = v
	}
	return nil
}

func (c *Config) validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.loc = loc

	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}

	if c.Fetch.Concurrency < 1 {
		c.Fetch.Concurrency = 1
	}
	if c.Fetch.TimeoutSeconds < 1 {
		return fmt.Errorf("fetch timeout must be at least 1s, got %ds", c.Fetch.TimeoutSeconds)
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("fetch retries must not be negative, got %d", c.Fetch.Retries)
	}
	// Per-source cap stays inside its supported band.
	if c.Fetch.MaxPerSource < 100 {
		c.Fetch.MaxPerSource = 100
	}
	if c.Fetch.MaxPerSource > 200 {
		c.Fetch.MaxPerSource = 200
	}
	if c.Digest.Size < 1 {
		return fmt.Errorf("digest size must be at least 1, got %d", c.Digest.Size)
	}
	if c.Digest.SummaryLength < 1 {
		return fmt.Errorf("summary length must be at least 1, got %d", c.Digest.SummaryLength)
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("invalid SMTP port %d", c.SMTP.Port)
	}

	seen := make(map[string]bool)
	for _, cat := range c.Rules.Categories {
		if cat.Name == "" {
			return fmt.Errorf("category with empty name in rules")
		}
		if seen[cat.Name] {
			return fmt.Errorf("duplicate category %q in rules", cat.Name)
		}
		seen[cat.Name] = true
	}

	for _, s := range c.Sources.Scrape {
		if s.Selectors.Title == "" {
			return fmt.Errorf("scrape source %q has no title selector", s.Name)
		}
	}

	return nil
}

// Location returns the target timezone resolved during Load.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
