// Package config loads server configuration from an optional YAML file with
// environment variable overrides. API keys are read from the environment
// only and never appear in config files.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	LLM      LLMConfig      `yaml:"llm"`
}

type ServerConfig struct {
	Port        string `yaml:"port"`
	CORSOrigins string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	// Driver selects the storage backend: "postgres" or "sqlite".
	Driver string `yaml:"driver"`
	// DSN is the postgres connection string or the sqlite file path.
	DSN string `yaml:"dsn"`
}

type AuthConfig struct {
	// JWTSecret is the HS256 shared secret for bearer token verification.
	JWTSecret string `yaml:"jwt_secret"`
}

type LLMConfig struct {
	// Provider is "openai" or "anthropic".
	Provider string `yaml:"provider"`
	// Model slots; empty slots fall back to per-provider defaults.
	Model       string `yaml:"model"`
	SearchModel string `yaml:"search_model"`
	FastModel   string `yaml:"fast_model"`
}

// Load reads the YAML file at path (skipped when path is empty or missing)
// and applies environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server:   ServerConfig{Port: "8080", CORSOrigins: "*"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "data/sparkthread.db"},
		LLM:      LLMConfig{Provider: "openai"},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnv(cfg)

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("jwt secret is required (auth.jwt_secret or SPARKTHREAD_JWT_SECRET)")
	}
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Database.Driver)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setIfPresent(&cfg.Server.Port, "SPARKTHREAD_PORT")
	setIfPresent(&cfg.Server.CORSOrigins, "SPARKTHREAD_CORS_ORIGINS")
	setIfPresent(&cfg.Database.Driver, "SPARKTHREAD_DB_DRIVER")
	setIfPresent(&cfg.Database.DSN, "SPARKTHREAD_DB_DSN")
	setIfPresent(&cfg.Auth.JWTSecret, "SPARKTHREAD_JWT_SECRET")
	setIfPresent(&cfg.LLM.Provider, "SPARKTHREAD_LLM_PROVIDER")
	setIfPresent(&cfg.LLM.Model, "SPARKTHREAD_LLM_MODEL")
	setIfPresent(&cfg.LLM.SearchModel, "SPARKTHREAD_LLM_SEARCH_MODEL")
	setIfPresent(&cfg.LLM.FastModel, "SPARKTHREAD_LLM_FAST_MODEL")
}

func setIfPresent(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// APIKey returns the provider API key from the environment.
func (c *Config) APIKey() string {
	switch c.LLM.Provider {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}
