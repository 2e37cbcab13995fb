// Package config loads the clawhelp YAML configuration.
//
// Values may reference environment variables as ${VAR} or ${VAR:-default};
// a .env file next to the config (or in the working directory) is loaded
// first. Unset variables without a default are left as written.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels/console"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels/discord"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels/telegram"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels/webchat"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/paths"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/scheduler"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/settings"
)

// Config is the top-level configuration.
type Config struct {
	// Name is the bot display name.
	Name string `yaml:"name"`

	// Prefix seeds the command prefix setting when none is stored yet.
	Prefix string `yaml:"prefix"`

	// Locale seeds the help module locale on first start.
	Locale string `yaml:"locale"`

	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Channels ChannelsConfig `yaml:"channels"`

	// CatalogPath points at a YAML command catalog. Empty uses the bundled one.
	CatalogPath string `yaml:"catalog_path"`

	// WatchCatalog reloads CatalogPath when the file changes.
	WatchCatalog bool `yaml:"watch_catalog"`

	// StatusCommand registers the built-in "status" command.
	StatusCommand bool `yaml:"status_command"`

	Metrics MetricsConfig `yaml:"metrics"`

	// Schedules run commands on cron schedules.
	Schedules []*scheduler.Job `yaml:"schedules"`
}

// MetricsConfig exposes Prometheus metrics over HTTP.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// DatabaseConfig selects the settings store.
type DatabaseConfig struct {
	// Driver is memory, sqlite or postgres.
	Driver string `yaml:"driver"`

	// DSN is a file path for sqlite or a connection URL for postgres.
	DSN string `yaml:"dsn"`
}

// ChannelsConfig enables chat platforms.
type ChannelsConfig struct {
	Discord  DiscordConfig  `yaml:"discord"`
	Telegram TelegramConfig `yaml:"telegram"`
	WebChat  WebChatConfig  `yaml:"webchat"`
	Console  console.Config `yaml:"console"`
}

// DiscordConfig wraps discord.Config with an enable switch.
type DiscordConfig struct {
	Enabled        bool `yaml:"enabled"`
	discord.Config `yaml:",inline"`
}

// TelegramConfig wraps telegram.Config with an enable switch.
type TelegramConfig struct {
	Enabled         bool `yaml:"enabled"`
	telegram.Config `yaml:",inline"`
}

// WebChatConfig wraps webchat.Config with an enable switch.
type WebChatConfig struct {
	Enabled        bool `yaml:"enabled"`
	webchat.Config `yaml:",inline"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Name:   "clawhelp",
		Prefix: settings.DefaultPrefix,
		Locale: "en",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Database: DatabaseConfig{
			Driver: settings.DriverSQLite,
			DSN:    paths.ResolveDatabasePath(paths.DatabaseFile),
		},
		Channels: ChannelsConfig{
			Discord:  DiscordConfig{Config: discord.DefaultConfig()},
			Telegram: TelegramConfig{Config: telegram.DefaultConfig()},
			WebChat:  WebChatConfig{Config: webchat.DefaultConfig()},
			Console: func() console.Config {
				c := console.DefaultConfig()
				c.HistoryFile = paths.ResolveHistoryFile()
				return c
			}(),
		},
		StatusCommand: true,
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9108",
			Path: "/metrics",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	fs := FsFactory()
	loadDotEnv(fs, path)

	cfg := DefaultConfig()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating parent directories.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	fs := FsFactory()
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0o600)
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(c.Prefix) == "" {
		result = multierror.Append(result, errors.New("prefix must not be empty"))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		result = multierror.Append(result, err)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.format %q: want text or json", c.Logging.Format))
	}
	switch strings.ToLower(c.Database.Driver) {
	case "", settings.DriverMemory, settings.DriverSQLite, "sqlite3":
	case settings.DriverPostgres, "postgresql", "pgx":
		if c.Database.DSN == "" {
			result = multierror.Append(result, errors.New("database.dsn is required for postgres"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("database.driver %q: want memory, sqlite or postgres", c.Database.Driver))
	}
	if c.Channels.WebChat.Enabled && c.Channels.WebChat.Addr == "" {
		result = multierror.Append(result, errors.New("channels.webchat.addr is required when enabled"))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		result = multierror.Append(result, errors.New("metrics.addr is required when enabled"))
	}
	if c.WatchCatalog && c.CatalogPath == "" {
		result = multierror.Append(result, errors.New("watch_catalog needs catalog_path"))
	}

	seen := make(map[string]bool, len(c.Schedules))
	for i, job := range c.Schedules {
		if job == nil {
			result = multierror.Append(result, fmt.Errorf("schedules[%d] is empty", i))
			continue
		}
		if seen[job.ID] {
			result = multierror.Append(result, fmt.Errorf("schedules: duplicate id %q", job.ID))
		}
		seen[job.ID] = true
		if err := job.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("schedules[%d]: %w", i, err))
		}
	}
	return result.ErrorOrNil()
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level %q: want debug, info, warn or error", s)
	}
}

// loadDotEnv loads .env from the config directory and the working directory.
// Existing environment variables are never overridden.
func loadDotEnv(fs afero.Fs, configPath string) {
	candidates := []string{".env"}
	if dir := filepath.Dir(configPath); dir != "." && dir != "" {
		candidates = append([]string{filepath.Join(dir, ".env")}, candidates...)
	}
	for _, p := range candidates {
		f, err := fs.Open(p)
		if err != nil {
			continue
		}
		vars, err := godotenv.Parse(f)
		f.Close()
		if err != nil {
			continue
		}
		for k, v := range vars {
			if _, ok := os.LookupEnv(k); !ok {
				_ = os.Setenv(k, v)
			}
		}
	}
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandEnvVars(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		name := m[1]
		if name == "" {
			name = m[4]
		}
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if m[2] != "" {
			return m[3]
		}
		return ref
	})
}
