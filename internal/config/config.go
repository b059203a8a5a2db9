package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Bounds  Bounds  `yaml:"bounds"`
	Output  Output  `yaml:"output"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

type Bounds struct {
	Timezone  string   `yaml:"timezone"`
	Selectors []string `yaml:"selectors"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// DefaultSelectors match every date and datetime-local input.
var DefaultSelectors = []string{`input[type="date"]`, `input[type="datetime-local"]`}

// ConfigDir returns the XDG config directory for ridebounds.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "ridebounds")
}

// DataDir returns the XDG data directory for ridebounds.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "ridebounds")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/ridebounds/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'ridebounds init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := parse(nil)
	if err != nil {
		// Unreachable: empty input always parses.
		panic(err)
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Bounds:  Bounds{Timezone: "UTC"},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.Bounds.Selectors) == 0 {
		cfg.Bounds.Selectors = append([]string(nil), DefaultSelectors...)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location resolves bounds.timezone. An empty value means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Bounds.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Bounds.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid bounds.timezone %q: %w", c.Bounds.Timezone, err)
	}
	return loc, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
