// Package config loads xreply's YAML configuration, applies environment
// overrides and watches the file for live edits of the selection keywords and
// reply templates.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"xreply/internal/drafter"
	"xreply/internal/selector"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where commands look for the config file unless --config is set.
const DefaultPath = "xreply.yaml"

// Config holds all xreply configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Search    SearchConfig    `yaml:"search"`
	Selection SelectionConfig `yaml:"selection"`
	Reply     ReplyConfig     `yaml:"reply"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SelectionConfig configures which scraped posts become proposals.
type SelectionConfig struct {
	// Case-sensitive substrings matched against the author bio. Empty means
	// every post qualifies.
	Keywords []string `yaml:"keywords"`
	Limit    int      `yaml:"limit"`
}

// ReplyConfig configures the reply drafter.
type ReplyConfig struct {
	Templates []string `yaml:"templates"`
}

// StorageConfig selects the proposal store backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // json, sqlite
	Path    string `yaml:"path"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":4000"},
		Browser: BrowserConfig{
			Headless:          true,
			NoSandbox:         true,
			SessionFile:       filepath.Join(".xreply", "session.json"),
			UserAgent:         DefaultUserAgent,
			Locale:            "ja-JP",
			Timezone:          "Asia/Tokyo",
			ViewportWidth:     1920,
			ViewportHeight:    1080,
			NavigationTimeout: "30s",
			ElementTimeout:    "10s",
		},
		Search: SearchConfig{
			BaseURL:            "https://x.com",
			Mode:               "recent",
			ScrapeLimit:        20,
			SettleDelay:        "8s",
			ScrollPause:        "2s",
			MaxScrolls:         10,
			StableScrolls:      3,
			ProfileSettleDelay: "2s",
			ProfileInterval:    "1s",
		},
		Selection: SelectionConfig{
			Keywords: append([]string(nil), selector.DefaultKeywords...),
			Limit:    10,
		},
		Reply: ReplyConfig{
			Templates: append([]string(nil), drafter.DefaultTemplates...),
		},
		Executor: ExecutorConfig{
			PageSettleDelay: "3s",
			StepDelay:       "1s",
		},
		Storage: StorageConfig{
			Backend: BackendJSON,
			Path:    filepath.Join(".xreply", "proposals.json"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// PORT is honoured for parity with common hosting setups.
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	if addr := os.Getenv("XREPLY_ADDR"); addr != "" {
		c.Server.Addr = addr
	}

	if v := os.Getenv("XREPLY_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	if bin := os.Getenv("XREPLY_CHROME_BIN"); bin != "" {
		c.Browser.Bin = bin
	}
	if path := os.Getenv("XREPLY_SESSION_FILE"); path != "" {
		c.Browser.SessionFile = path
	}

	if backend := os.Getenv("XREPLY_STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if path := os.Getenv("XREPLY_STORAGE_PATH"); path != "" {
		c.Storage.Path = path
	}

	if lvl := os.Getenv("XREPLY_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
	if kw := os.Getenv("XREPLY_KEYWORDS"); kw != "" {
		c.Selection.Keywords = splitList(kw)
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("invalid storage backend: %s (valid: %s, %s)", c.Storage.Backend, BackendJSON, BackendSQLite)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path not configured")
	}
	if c.Search.Mode != "recent" && c.Search.Mode != "top" {
		return fmt.Errorf("invalid search mode: %s (valid: recent, top)", c.Search.Mode)
	}
	if c.Search.ScrapeLimit < 1 {
		return fmt.Errorf("search.scrape_limit must be >= 1")
	}
	if c.Search.MaxScrolls < 0 {
		return fmt.Errorf("search.max_scrolls must be >= 0")
	}
	if c.Selection.Limit < 1 {
		return fmt.Errorf("selection.limit must be >= 1")
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}
	return nil
}
