package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConcordConfig represents the top-level concord.yml configuration
type ConcordConfig struct {
	Version   string           `yaml:"version"`
	Instance  string           `yaml:"instance"`
	Redis     RedisConfig      `yaml:"redis"`
	API       *APIConfig       `yaml:"api,omitempty"`
	Hub       *HubConfig       `yaml:"hub,omitempty"`
	Evolution *EvolutionConfig `yaml:"evolution,omitempty"`
}

// RedisConfig specifies the Redis connection for the document store
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// APIConfig specifies the HTTP API server
type APIConfig struct {
	Addr string `yaml:"addr,omitempty"` // Default: ":8080"
}

// HubConfig specifies the collaboration hub database
type HubConfig struct {
	Database string `yaml:"database,omitempty"` // Default: "concord.db"
}

// EvolutionConfig specifies the evolution runner
type EvolutionConfig struct {
	Interval time.Duration `yaml:"interval,omitempty"` // Default: 1h, minimum 1s
}

// Validate performs strict validation on the configuration and applies
// defaults for optional sections.
func (c *ConcordConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	// Required: instance name
	if c.Instance == "" {
		return fmt.Errorf("instance name is required")
	}

	// Required: redis address
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}

	if c.API == nil {
		c.API = &APIConfig{}
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}

	if c.Hub == nil {
		c.Hub = &HubConfig{}
	}
	if c.Hub.Database == "" {
		c.Hub.Database = "concord.db"
	}

	if c.Evolution == nil {
		c.Evolution = &EvolutionConfig{}
	}
	if c.Evolution.Interval == 0 {
		c.Evolution.Interval = time.Hour
	}
	if c.Evolution.Interval < time.Second {
		return fmt.Errorf("evolution.interval must be at least 1s, got %v", c.Evolution.Interval)
	}

	return nil
}

// Load reads, parses, and validates a concord.yml file.
func Load(path string) (*ConcordConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config ConcordConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
