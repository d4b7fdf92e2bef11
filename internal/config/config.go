// Package config provides configuration management for the feed reader.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"feedqa/pkg/utils"
)

// Default values applied before a YAML file is decoded on top.
const (
	DefaultProxyEndpoint   = "https://api.allorigins.win/raw"
	DefaultProxyParam      = "url"
	DefaultAccept          = "application/rss+xml, application/xml, text/xml, */*"
	DefaultUserAgent       = "feedqa/1.0 (+https://github.com/feedqa)"
	DefaultTimeoutSec      = 30
	DefaultMaxBodyKb       = 4096
	DefaultProvider        = "gemini"
	DefaultModel           = "gemini-2.5-flash"
	DefaultAPIKeyEnv       = "GOOGLE_API_KEY"
	DefaultMaxContextChars = 2000
	DefaultDBPath          = "./data/feedqa.db"
	DefaultAddr            = ":8080"
	DefaultConfigPath      = "configs/feedqa.yaml"
)

// Configuration validation errors.
var (
	ErrMissingProxyEndpoint = errors.New("fetcher.proxy_endpoint is required")
	ErrInvalidProxyEndpoint = errors.New("fetcher.proxy_endpoint must be an absolute URL")
	ErrMissingProxyParam    = errors.New("fetcher.proxy_param is required")
	ErrInvalidTimeout       = errors.New("fetcher.timeout_sec must be at least 1")
	ErrInvalidMaxBody       = errors.New("fetcher.max_body_kb must be at least 1")
	ErrUnknownProvider      = errors.New("inference.provider must be 'gemini'")
	ErrMissingModel         = errors.New("inference.model is required")
	ErrInvalidMaxContext    = errors.New("inference.max_context_chars must be at least 1")
	ErrMissingDBPath        = errors.New("storage.db_path is required")
	ErrMissingAddr          = errors.New("server.addr is required")
	ErrInvalidLogLevel      = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat     = errors.New("logging.format must be 'text' or 'json'")
	ErrInferenceKeyNotInEnv = errors.New("inference API key is not set")
	ErrEmptyConfigPath      = errors.New("config path is empty")
)

// Config represents the complete feed reader configuration.
type Config struct {
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Inference InferenceConfig `yaml:"inference"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// FetcherConfig controls feed retrieval.
type FetcherConfig struct {
	ProxyEndpoint string `yaml:"proxy_endpoint"`
	ProxyParam    string `yaml:"proxy_param"`
	Accept        string `yaml:"accept"`
	UserAgent     string `yaml:"user_agent"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	MaxBodyKb     int    `yaml:"max_body_kb"`
}

// InferenceConfig selects the question-answering backend.
type InferenceConfig struct {
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	APIKeyEnv       string `yaml:"api_key_env"`
	BaseURL         string `yaml:"base_url"`
	MaxContextChars int    `yaml:"max_context_chars"`
}

// StorageConfig locates the feed database.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration usable without any file.
func Default() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			ProxyEndpoint: DefaultProxyEndpoint,
			ProxyParam:    DefaultProxyParam,
			Accept:        DefaultAccept,
			UserAgent:     DefaultUserAgent,
			TimeoutSec:    DefaultTimeoutSec,
			MaxBodyKb:     DefaultMaxBodyKb,
		},
		Inference: InferenceConfig{
			Provider:        DefaultProvider,
			Model:           DefaultModel,
			APIKeyEnv:       DefaultAPIKeyEnv,
			MaxContextChars: DefaultMaxContextChars,
		},
		Storage: StorageConfig{
			DBPath: DefaultDBPath,
		},
		Server: ServerConfig{
			Addr:           DefaultAddr,
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a YAML file. Keys missing from the
// file keep their default values.
func LoadConfig(filepath string) (*Config, error) {
	if filepath == "" {
		return nil, ErrEmptyConfigPath
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when given, otherwise DefaultConfigPath when it
// exists, otherwise the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return LoadConfig(path)
	}

	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return LoadConfig(DefaultConfigPath)
	}

	return Default(), nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Fetcher.ProxyEndpoint == "" {
		return ErrMissingProxyEndpoint
	}

	u, err := url.Parse(c.Fetcher.ProxyEndpoint)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrInvalidProxyEndpoint
	}

	if c.Fetcher.ProxyParam == "" {
		return ErrMissingProxyParam
	}

	if c.Fetcher.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Fetcher.MaxBodyKb < 1 {
		return ErrInvalidMaxBody
	}

	if c.Inference.Provider != DefaultProvider {
		return fmt.Errorf("%w: got %q", ErrUnknownProvider, c.Inference.Provider)
	}

	if c.Inference.Model == "" {
		return ErrMissingModel
	}

	if c.Inference.MaxContextChars < 1 {
		return ErrInvalidMaxContext
	}

	if c.Storage.DBPath == "" {
		return ErrMissingDBPath
	}

	if c.Server.Addr == "" {
		return ErrMissingAddr
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// GetTimeout returns the HTTP timeout duration.
func (fc *FetcherConfig) GetTimeout() time.Duration {
	return time.Duration(fc.TimeoutSec) * time.Second
}

// GetMaxBodyBytes returns the response body cap in bytes.
func (fc *FetcherConfig) GetMaxBodyBytes() int64 {
	return int64(fc.MaxBodyKb) * 1024
}

// APIKey reads the inference API key from the configured environment variable.
func (ic *InferenceConfig) APIKey() (string, error) {
	name := utils.FirstNonEmpty(ic.APIKeyEnv, DefaultAPIKeyEnv)

	key := os.Getenv(name)
	if key == "" {
		return "", fmt.Errorf("%w: set %s", ErrInferenceKeyNotInEnv, name)
	}

	return key, nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Proxy: %s, Model: %s/%s, DB: %s}",
		c.Fetcher.ProxyEndpoint,
		c.Inference.Provider,
		c.Inference.Model,
		c.Storage.DBPath,
	)
}
