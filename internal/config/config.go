package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"taskflow/internal/db"
)

// Config models taskflow.yml.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Auth    AuthConfig    `yaml:"auth"`
	DB      DBConfig      `yaml:"db"`
}

type ServiceConfig struct {
	Name     string `yaml:"name"`
	Addr     string `yaml:"addr"`
	BasePath string `yaml:"base_path"`
}

type AuthConfig struct {
	APIKey       string `yaml:"api_key"`
	APIKeyHeader string `yaml:"api_key_header"`
	JWTSecret    string `yaml:"jwt_secret"`
}

type DBConfig struct {
	Path                  string `yaml:"path"`
	PoolSize              int    `yaml:"pool_size"`
	MaxOverflow           int    `yaml:"max_overflow"`
	RecycleSeconds        int    `yaml:"recycle_seconds"`
	AcquireTimeoutSeconds int    `yaml:"acquire_timeout_seconds"`
}

// Default returns the baseline config. The API key has no default; it must
// come from the config file or environment.
func Default() *Config {
	c := &Config{}
	c.Service.Name = "TASK FLOW API"
	c.Service.Addr = ":8000"
	c.Service.BasePath = "/v1"
	c.Auth.APIKeyHeader = "api-key"
	c.DB.Path = "taskflow.db"
	c.DB.PoolSize = db.DefaultPoolSize
	c.DB.MaxOverflow = db.DefaultMaxOverflow
	c.DB.RecycleSeconds = int(db.DefaultRecycleTime / time.Second)
	c.DB.AcquireTimeoutSeconds = int(db.DefaultAcquireTimeout / time.Second)
	return c
}

// Load reads config from path, overlaying the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config bytes over the defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("config.service.name is required")
	}
	if !strings.HasPrefix(c.Service.BasePath, "/") {
		return fmt.Errorf("config.service.base_path must start with /")
	}
	if c.Auth.APIKeyHeader == "" {
		return fmt.Errorf("config.auth.api_key_header is required")
	}
	if c.DB.PoolSize <= 0 {
		return fmt.Errorf("config.db.pool_size must be positive")
	}
	if c.DB.MaxOverflow < 0 {
		return fmt.Errorf("config.db.max_overflow must not be negative")
	}
	if c.DB.AcquireTimeoutSeconds <= 0 {
		return fmt.Errorf("config.db.acquire_timeout_seconds must be positive")
	}
	return nil
}

// Pool converts the DB section into pool settings.
func (c *Config) Pool() db.Config {
	return db.Config{
		Path:           c.DB.Path,
		PoolSize:       c.DB.PoolSize,
		MaxOverflow:    c.DB.MaxOverflow,
		RecycleTime:    time.Duration(c.DB.RecycleSeconds) * time.Second,
		AcquireTimeout: time.Duration(c.DB.AcquireTimeoutSeconds) * time.Second,
	}
}

// AcquireTimeout is the bounded wait for a pooled connection.
func (c *Config) AcquireTimeout() time.Duration {
	return time.Duration(c.DB.AcquireTimeoutSeconds) * time.Second
}
