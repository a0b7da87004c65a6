// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads layered configuration for the extension host:
// defaults, YAML file, profile overlay, environment and CLI overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override (PIEXT_SEARCH_BASE_URL -> search.base_url).
const EnvPrefix = "PIEXT_"

// CredentialEnv is the environment variable holding the Brave Search API key.
const CredentialEnv = "BRAVE_API_KEY"

// Soul resolution modes.
const (
	SoulModeEveryTurn    = "every_turn"
	SoulModeSessionStart = "session_start"
	SoulModeStatic       = "static"
)

type Config struct {
	Log        LogConfig        `koanf:"log"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Extensions ExtensionsConfig `koanf:"extensions"`
	Search     SearchConfig     `koanf:"search"`
	Soul       SoulConfig       `koanf:"soul"`
	Audit      AuditConfig      `koanf:"audit"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text, none
}

type TelemetryConfig struct {
	Exporter           string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint       string `koanf:"otlp_endpoint"`
	OTLPInsecure       bool   `koanf:"otlp_insecure"`
	OTLPTimeoutSeconds int    `koanf:"otlp_timeout_seconds"`
}

type ExtensionsConfig struct {
	Enabled []string `koanf:"enabled"`
}

type SearchConfig struct {
	APIKey         string  `koanf:"api_key"`
	BaseURL        string  `koanf:"base_url"`
	TimeoutSeconds int     `koanf:"timeout_seconds"`
	RateLimit      float64 `koanf:"rate_limit"` // requests per second, 0 disables
	Burst          int     `koanf:"burst"`
	MaxAttempts    int     `koanf:"max_attempts"`
}

type SoulConfig struct {
	Mode         string `koanf:"mode"` // every_turn, session_start, static
	ProjectDir   string `koanf:"project_dir"`
	HomeDir      string `koanf:"home_dir"`
	ExtensionDir string `koanf:"extension_dir"`
	StaticPath   string `koanf:"static_path"`
	DefaultText  string `koanf:"default_text"`
}

type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	Driver  string `koanf:"driver"` // memory, sqlite
	DSN     string `koanf:"dsn"`
}

// Options selects the sources layered on top of the defaults.
type Options struct {
	Path      string
	Profile   string
	Overrides []string // key=value
}

// Load reads configuration from path (optional), then the environment.
func Load(path string) (*Config, error) {
	return LoadWithOptions(Options{Path: path})
}

// LoadWithOptions layers defaults, file, profile file, env and overrides.
func LoadWithOptions(opts Options) (*Config, error) {
	k := koanf.New(".")
	setDefaults(k)

	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", opts.Path, err)
		}
		if profilePath := profileConfigPath(opts.Path, opts.Profile); profilePath != "" {
			if err := k.Load(file.Provider(profilePath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load profile config %s: %w", profilePath, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(CredentialEnv, ".", func(s string) string {
		if s != CredentialEnv {
			return ""
		}
		return "search.api_key"
	}), nil); err != nil {
		return nil, err
	}

	for _, override := range opts.Overrides {
		key, value, err := parseOverride(override)
		if err != nil {
			return nil, err
		}
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("apply --set %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Soul.Mode {
	case SoulModeEveryTurn, SoulModeSessionStart, SoulModeStatic:
	default:
		return fmt.Errorf("invalid soul.mode %q", c.Soul.Mode)
	}
	switch c.Audit.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("invalid audit.driver %q", c.Audit.Driver)
	}
	if c.Search.RateLimit < 0 {
		return fmt.Errorf("search.rate_limit must be >= 0")
	}
	if c.Search.MaxAttempts < 1 {
		return fmt.Errorf("search.max_attempts must be >= 1")
	}
	return nil
}

// ExtensionEnabled reports whether the named extension should be loaded.
func (c *Config) ExtensionEnabled(name string) bool {
	for _, enabled := range c.Extensions.Enabled {
		if strings.EqualFold(strings.TrimSpace(enabled), name) {
			return true
		}
	}
	return false
}

func setDefaults(k *koanf.Koanf) {
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("telemetry.exporter", "none")
	k.Set("extensions.enabled", []string{"brave-search", "soul"})

	k.Set("search.base_url", "https://api.search.brave.com")
	k.Set("search.timeout_seconds", 30)
	k.Set("search.rate_limit", 1.0)
	k.Set("search.burst", 1)
	k.Set("search.max_attempts", 1)

	k.Set("soul.mode", SoulModeEveryTurn)
	if wd, err := os.Getwd(); err == nil {
		k.Set("soul.project_dir", wd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		k.Set("soul.home_dir", home)
	}
	if exe, err := os.Executable(); err == nil {
		k.Set("soul.extension_dir", filepath.Dir(exe))
	}

	k.Set("audit.enabled", false)
	k.Set("audit.driver", "memory")
}

// envKey maps PIEXT_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	trimmed := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, ok := strings.Cut(trimmed, "_")
	if !ok || rest == "" {
		return ""
	}
	return section + "." + rest
}

func profileConfigPath(base, profile string) string {
	profile = strings.TrimSpace(profile)
	if base == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(base)
	path := strings.TrimSuffix(base, ext) + "." + profile + ext
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func parseOverride(raw string) (string, any, error) {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, fmt.Errorf("invalid --set value %q, want key=value", raw)
	}
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return key, decoded, nil
		}
	}
	return key, value, nil
}
