// Package config loads and validates the server's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds server configuration.
type Config struct {
	Listen ListenConfig `yaml:"listen"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
	path   string
}

type ListenConfig struct {
	Addr           string `yaml:"addr"`
	MaxConnections int    `yaml:"maxConnections"`
}

type StoreConfig struct {
	// PubSubBufferSize is the per-subscriber channel capacity; a slow
	// subscriber drops its oldest buffered message rather than stalling
	// publishers once it fills up.
	PubSubBufferSize int `yaml:"pubsubBufferSize"`
}

type LogConfig struct {
	Dir    string `yaml:"dir"`
	Level  string `yaml:"level"`
	Prefix string `yaml:"prefix"`
}

// ValidationError collects configuration issues.
type ValidationError struct {
	Path   string
	Errors []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid configuration")
	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteString(")")
	}
	b.WriteString(": ")
	b.WriteString(strings.Join(e.Errors, "; "))
	return b.String()
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config file %s: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", absPath, err)
	}

	cfg.path = absPath
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults populates unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Listen.Addr == "" {
		c.Listen.Addr = "127.0.0.1:6379"
	}
	if c.Listen.MaxConnections <= 0 {
		c.Listen.MaxConnections = 500
	}
	if c.Store.PubSubBufferSize <= 0 {
		c.Store.PubSubBufferSize = 1024
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Prefix == "" {
		c.Log.Prefix = "redis-server"
	}
}

// Validate ensures the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []string

	if c.Listen.Addr == "" {
		errs = append(errs, "listen.addr is required")
	}
	if c.Listen.MaxConnections <= 0 {
		errs = append(errs, "listen.maxConnections must be > 0")
	}
	if c.Store.PubSubBufferSize <= 0 {
		errs = append(errs, "store.pubsubBufferSize must be > 0")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug/info/warn/error", c.Log.Level))
	}

	if len(errs) > 0 {
		return &ValidationError{Path: c.path, Errors: errs}
	}
	return nil
}

// AdmissionBackoffBase is the accept loop's starting retry delay.
const AdmissionBackoffBase = time.Second
