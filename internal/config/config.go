// Package config loads and validates the sitewright configuration file and
// exposes an immutable view of it to extension code.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings is the application configuration, immutable after Load.
type Settings struct {
	Site       SiteConfig       `yaml:"site"`
	Locations  LocationsConfig  `yaml:"locations"`
	Server     ServerConfig     `yaml:"server"`
	Build      BuildConfig      `yaml:"build"`
	Plugins    []PluginRef      `yaml:"plugins,omitempty"`
	Hooks      HooksConfig      `yaml:"hooks,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	EventStore EventStoreConfig `yaml:"eventstore,omitempty"`
	Progress   ProgressConfig   `yaml:"progress,omitempty"`
}

// SiteConfig describes the generated site.
type SiteConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
}

// LocationsConfig holds the content/template/output directory layout.
type LocationsConfig struct {
	Content   string `yaml:"content"`
	Templates string `yaml:"templates"`
	Output    string `yaml:"output"`
	Assets    string `yaml:"assets,omitempty"`
}

// ServerConfig configures serve mode.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
	// Prefix is prepended to every permalink when resolving in server context.
	Prefix string `yaml:"prefix,omitempty"`
}

// BuildConfig configures the build fan-out.
type BuildConfig struct {
	// Workers is the number of parallel request dispatchers.
	Workers int `yaml:"workers,omitempty"`
	// RebuildEvery is an optional interval for scheduled rebuilds in serve mode
	// (Go duration string, e.g. "10m"). Empty disables scheduling.
	RebuildEvery string `yaml:"rebuild_every,omitempty"`
}

// PluginRef names a configured plugin and its user configuration.
// Plugins load in declaration order.
type PluginRef struct {
	Name   string         `yaml:"name"`
	Config map[string]any `yaml:"config,omitempty"`
}

// HooksConfig holds project-level hook settings.
type HooksConfig struct {
	// Disable lists hook names excluded from the final hook list.
	Disable []string `yaml:"disable,omitempty"`
}

// EventStoreConfig configures the build event store.
type EventStoreConfig struct {
	// Path is the SQLite database path. Empty disables persistence.
	Path string `yaml:"path,omitempty"`
}

// ProgressConfig configures optional out-of-process progress streaming.
type ProgressConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Load reads the configuration file, expands environment variables, and
// applies defaults. A missing config file is an error; a missing .env is not.
func Load(configPath string) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Note: .env could not be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var s Settings
	if err := yaml.Unmarshal([]byte(expanded), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	s.applyDefaults()
	return &s, nil
}

func (s *Settings) applyDefaults() {
	if s.Site.Title == "" {
		s.Site.Title = "Sitewright Site"
	}
	if s.Locations.Content == "" {
		s.Locations.Content = "./content"
	}
	if s.Locations.Templates == "" {
		s.Locations.Templates = "./templates"
	}
	if s.Locations.Output == "" {
		s.Locations.Output = "./public"
	}
	if s.Server.Addr == "" {
		s.Server.Addr = ":8080"
	}
	if s.Build.Workers <= 0 {
		s.Build.Workers = 4
	}
	if s.Progress.Subject == "" {
		s.Progress.Subject = "sitewright.progress"
	}
}

// Defaults returns a Settings value with all defaults applied, for callers
// that operate without a config file (mostly tests).
func Defaults() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

const initTemplate = `# sitewright configuration
site:
  title: "My Site"
  base_url: "https://example.com"

locations:
  content: ./content
  templates: ./templates
  output: ./public

build:
  workers: 4

plugins:
  - name: content
  - name: gitmeta
    config:
      path: .
`

// Init writes a starter configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := os.WriteFile(configPath, []byte(initTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
