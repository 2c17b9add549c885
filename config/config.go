// Package config loads the wizard harness configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	rcron "github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Scan    ScanConfig    `yaml:"scan"`
	Tasks   TasksConfig   `yaml:"tasks"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig points at the task server. MaxRetries only applies to lookups.
type ServerConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

type ScanConfig struct {
	// Debounce drops a repeated code inside this window, zero disables it.
	Debounce time.Duration `yaml:"debounce"`
}

// TasksConfig selects where tasks come from. File wins over the server when set.
type TasksConfig struct {
	File    string `yaml:"file"`
	Refresh string `yaml:"refresh"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Timeout:    10 * time.Second,
			MaxRetries: 2,
		},
		Scan:    ScanConfig{Debounce: time.Second},
		Tasks:   TasksConfig{Refresh: "@every 1m"},
		Log:     LogConfig{Level: "info", Format: "console"},
		Metrics: MetricsConfig{Addr: ":9464"},
	}
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the file at path. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

var levels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true,
}

// Validate checks field ranges and formats.
func (c Config) Validate() error {
	var errs []error
	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.base_url %q is not an absolute url", c.Server.BaseURL))
		}
	}
	if c.Server.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("server.timeout must be positive"))
	}
	if c.Server.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("server.max_retries must not be negative"))
	}
	if c.Scan.Debounce < 0 {
		errs = append(errs, fmt.Errorf("scan.debounce must not be negative"))
	}
	if c.Tasks.Refresh != "" {
		if _, err := rcron.ParseStandard(c.Tasks.Refresh); err != nil {
			errs = append(errs, fmt.Errorf("tasks.refresh: %w", err))
		}
	}
	if !levels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("log.level %q is not one of trace, debug, info, warn, error, fatal", c.Log.Level))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be console or json", c.Log.Format))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, fmt.Errorf("metrics.addr is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}
