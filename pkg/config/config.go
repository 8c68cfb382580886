// Package config loads editor settings from an optional YAML (or JSON) file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/arbor/pkg/domain"
)

// DefaultPath is the file looked up when no explicit path is given.
const DefaultPath = "arbor.yaml"

// Config is the structure of arbor.yaml.
type Config struct {
	// History is the number of undoable snapshots kept per document. 0 disables history.
	History int `yaml:"history" json:"history"`

	// ExclusiveEvents lists the flags only one node may hold at a time.
	ExclusiveEvents []string `yaml:"exclusive_events" json:"exclusive_events"`

	// InvariantChecks validates the tree before each structural commit. Defaults to true.
	InvariantChecks *bool `yaml:"invariant_checks" json:"invariant_checks"`

	// Components are registered in addition to the built-in Canvas.
	Components []domain.ComponentType `yaml:"components" json:"components"`

	LogLevel string        `yaml:"log_level" json:"log_level"`
	Metrics  MetricsConfig `yaml:"metrics" json:"metrics"`
	Server   ServerConfig  `yaml:"server" json:"server"`
	Locks    LocksConfig   `yaml:"locks" json:"locks"`
}

// MetricsConfig controls the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// ServerConfig controls the HTTP host.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LocksConfig enables document locks shared by several server replicas.
type LocksConfig struct {
	// RedisAddr is the host:port of the Redis server. Empty keeps locking in-process.
	RedisAddr string `yaml:"redis_addr" json:"redis_addr"`
	Prefix    string `yaml:"prefix" json:"prefix"`

	// TTL bounds how long a crashed replica can hold a document. JSON files give it
	// in nanoseconds.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		History:         100,
		ExclusiveEvents: append([]string(nil), domain.DefaultExclusiveEvents...),
		Metrics:         MetricsConfig{Namespace: "arbor"},
		Server:          ServerConfig{Addr: ":8080"},
		Locks:           LocksConfig{Prefix: "arbor:", TTL: 30 * time.Second},
	}
}

// Load reads a configuration file. A missing file yields the defaults; fields
// absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Validate reports every inconsistent setting.
func (c *Config) Validate() error {
	var errs []error
	if c.History < 0 {
		errs = append(errs, fmt.Errorf("history must not be negative, got %d", c.History))
	}
	seen := map[string]bool{domain.CanvasComponent.Name: true}
	for i, comp := range c.Components {
		if comp.Name == "" {
			errs = append(errs, fmt.Errorf("components[%d]: name is required", i))
			continue
		}
		if seen[comp.Name] {
			errs = append(errs, fmt.Errorf("components[%d]: duplicate component %q", i, comp.Name))
		}
		seen[comp.Name] = true
	}
	if c.Locks.RedisAddr != "" && c.Locks.TTL <= 0 {
		errs = append(errs, fmt.Errorf("locks.ttl must be positive, got %s", c.Locks.TTL))
	}
	return errors.Join(errs...)
}

// InvariantChecksEnabled resolves the tri-state invariant_checks setting.
func (c *Config) InvariantChecksEnabled() bool {
	return c.InvariantChecks == nil || *c.InvariantChecks
}
