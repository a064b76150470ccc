// Package config loads service configuration from an optional YAML file
// with environment variable overrides. Environment always wins so
// deployments can keep one file and vary per instance.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Upstream struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Archive struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxRuntime   time.Duration `yaml:"max_runtime"`
}

type Config struct {
	HTTPAddr    string   `yaml:"http_addr"`
	LogLevel    string   `yaml:"log_level"`
	DatabaseURL string   `yaml:"database_url"`
	Upstream    Upstream `yaml:"upstream"`
	Archive     Archive  `yaml:"archive"`
}

func defaults() Config {
	return Config{
		HTTPAddr: ":8082",
		LogLevel: "info",
		Upstream: Upstream{Timeout: 10 * time.Second},
		Archive:  Archive{PollInterval: 5 * time.Minute, MaxRuntime: 30 * time.Second},
	}
}

// Load reads the YAML file at path (if path is non-empty) and applies
// environment overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if strings.TrimSpace(cfg.Upstream.BaseURL) == "" {
		return Config{}, fmt.Errorf("upstream base URL is required (UPSTREAM_BASE_URL or upstream.base_url)")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("UPSTREAM_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Upstream.Timeout = d
		}
	}
	if v := os.Getenv("ARCHIVE_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Archive.PollInterval = d
		}
	}
	if v := os.Getenv("ARCHIVE_MAX_RUNTIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Archive.MaxRuntime = d
		}
	}
}
