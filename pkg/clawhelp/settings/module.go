// Package settings – module.go defines the help module settings document and
// the framework event settings that carry the command prefix.
package settings

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// ModuleKey is the store key of the help module settings.
	ModuleKey = "HelpModule"

	// EventKey is the store key of the framework event settings.
	EventKey = "clawhelp.event"

	// DefaultPrefix is the command prefix used when none is configured.
	DefaultPrefix = "/"
)

// Rendering styles.
const (
	StyleSimple   = "simple"
	StyleDetailed = "detailed"
)

// Error policies applied when handling a request fails.
const (
	PolicyLog    = "log"
	PolicyNotify = "notify"
)

// ModuleSettings is the persisted configuration of the help module.
type ModuleSettings struct {
	ShowHiddenCommands bool   `json:"show_hidden_commands"`
	GroupCommands      bool   `json:"group_commands"`
	Style              string `json:"style"`
	Locale             string `json:"locale"`
	ErrorPolicy        string `json:"error_policy"`
}

// DefaultModuleSettings returns the settings written when none exist.
func DefaultModuleSettings() ModuleSettings {
	return ModuleSettings{
		ShowHiddenCommands: false,
		GroupCommands:      true,
		Style:              StyleSimple,
		Locale:             "en",
		ErrorPolicy:        PolicyNotify,
	}
}

// Normalize replaces unknown enum values with their defaults.
func (s ModuleSettings) Normalize() ModuleSettings {
	def := DefaultModuleSettings()

	s.Style = strings.ToLower(strings.TrimSpace(s.Style))
	if s.Style != StyleSimple && s.Style != StyleDetailed {
		s.Style = def.Style
	}
	s.ErrorPolicy = strings.ToLower(strings.TrimSpace(s.ErrorPolicy))
	if s.ErrorPolicy != PolicyLog && s.ErrorPolicy != PolicyNotify {
		s.ErrorPolicy = def.ErrorPolicy
	}
	if strings.TrimSpace(s.Locale) == "" {
		s.Locale = def.Locale
	}
	return s
}

// LoadModule returns the help module settings. When the store holds none,
// the defaults are persisted and a warning is logged. Fields missing from a
// stored document take their default values.
func LoadModule(ctx context.Context, s Store, logger *slog.Logger) (ModuleSettings, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := DefaultModuleSettings()
	found, err := GetJSON(ctx, s, ModuleKey, &cfg)
	if err != nil {
		return ModuleSettings{}, err
	}
	if found {
		return cfg.Normalize(), nil
	}

	def := DefaultModuleSettings()
	if err := SetJSON(ctx, s, ModuleKey, def); err != nil {
		return ModuleSettings{}, err
	}
	logger.Warn("help module settings not found, created defaults", "key", ModuleKey)
	return def, nil
}

// SaveModule persists the help module settings.
func SaveModule(ctx context.Context, s Store, cfg ModuleSettings) error {
	return SetJSON(ctx, s, ModuleKey, cfg.Normalize())
}

// EventSettings is the subset of the framework event configuration read here.
type EventSettings struct {
	Command CommandSettings `json:"command"`
}

// CommandSettings holds framework-wide command options.
type CommandSettings struct {
	Prefix string `json:"prefix"`
}

// CommandPrefix returns the configured command prefix, falling back to
// DefaultPrefix when the event settings are absent, empty or unreadable.
func CommandPrefix(ctx context.Context, s Store) string {
	var ev EventSettings
	found, err := GetJSON(ctx, s, EventKey, &ev)
	if err != nil || !found || ev.Command.Prefix == "" {
		return DefaultPrefix
	}
	return ev.Command.Prefix
}

// SetCommandPrefix stores prefix in the event settings, keeping other fields.
func SetCommandPrefix(ctx context.Context, s Store, prefix string) error {
	var ev EventSettings
	if _, err := GetJSON(ctx, s, EventKey, &ev); err != nil {
		return err
	}
	ev.Command.Prefix = prefix
	return SetJSON(ctx, s, EventKey, ev)
}

// Seed writes the configured prefix and locale when the store has no
// settings yet. Stored values always win over configuration.
func Seed(ctx context.Context, s Store, prefix, locale string) error {
	var ev EventSettings
	found, err := GetJSON(ctx, s, EventKey, &ev)
	if err != nil {
		return err
	}
	if (!found || ev.Command.Prefix == "") && prefix != "" {
		if err := SetCommandPrefix(ctx, s, prefix); err != nil {
			return err
		}
	}

	_, found, err = s.Load(ctx, ModuleKey)
	if err != nil {
		return err
	}
	if !found {
		cfg := DefaultModuleSettings()
		if locale != "" {
			cfg.Locale = locale
		}
		return SaveModule(ctx, s, cfg)
	}
	return nil
}
