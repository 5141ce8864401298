// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from config.yaml, a .env file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// QueueConfig names the broker queues.
type QueueConfig struct {
	Inbound            string `yaml:"inbound" env:"EMAIL_QUEUE"`
	Outreach           string `yaml:"outreach" env:"VENDOR_OUTREACH_QUEUE"`
	InternalError      string `yaml:"internal_error" env:"INTERNAL_ERROR_QUEUE"`
	ManualIntervention string `yaml:"manual_intervention" env:"MANUAL_INTERVENTION_QUEUE"`
}

// RedisConfig holds broker connection settings.
type RedisConfig struct {
	URL    string      `yaml:"url" env:"REDIS_URL"`
	Queues QueueConfig `yaml:"queues"`

	// BlockTimeout bounds a single blocking pop so shutdown is noticed promptly.
	BlockTimeout         time.Duration `yaml:"block_timeout" env:"REDIS_BLOCK_TIMEOUT"`
	MaxReconnectAttempts uint64        `yaml:"max_reconnect_attempts" env:"REDIS_MAX_RECONNECT_ATTEMPTS"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay" env:"REDIS_RECONNECT_BASE_DELAY"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay" env:"REDIS_RECONNECT_MAX_DELAY"`
	DedupTTL             time.Duration `yaml:"dedup_ttl" env:"DEDUP_TTL"`
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns" env:"DATABASE_MAX_CONNS"`
}

// FlightFinderConfig holds vendor catalog settings.
type FlightFinderConfig struct {
	BaseURL      string        `yaml:"base_url" env:"FLIGHT_FINDER_BASE_URL"`
	SessionToken string        `yaml:"session_token" env:"FLIGHT_FINDER_CI_SESSION"`
	Timeout      time.Duration `yaml:"timeout" env:"FLIGHT_FINDER_TIMEOUT"`
}

// ExtractionConfig selects and configures the semantic extraction provider.
type ExtractionConfig struct {
	Provider        string        `yaml:"provider" env:"EXTRACTION_PROVIDER"` // "openai" or "anthropic"
	Model           string        `yaml:"model" env:"EXTRACTION_MODEL"`
	OpenAIAPIKey    string        `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	AnthropicAPIKey string        `yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	BaseURL         string        `yaml:"base_url" env:"EXTRACTION_BASE_URL"`
	Timeout         time.Duration `yaml:"timeout" env:"EXTRACTION_TIMEOUT"`
}

// APIKey returns the key for the configured provider.
func (e ExtractionConfig) APIKey() string {
	if e.Provider == ProviderAnthropic {
		return e.AnthropicAPIKey
	}
	return e.OpenAIAPIKey
}

// SearchConfig holds the radius escalation policy.
type SearchConfig struct {
	RadiusIncrement int `yaml:"radius_increment" env:"SEARCH_RADIUS_INCREMENT"`
	RadiusCap       int `yaml:"radius_cap" env:"SEARCH_RADIUS_CAP"`
}

// Config holds all configuration for the JetFinder backend.
type Config struct {
	Redis        RedisConfig        `yaml:"redis"`
	Database     DatabaseConfig     `yaml:"database"`
	FlightFinder FlightFinderConfig `yaml:"flight_finder"`
	Extraction   ExtractionConfig   `yaml:"extraction"`
	Search       SearchConfig       `yaml:"search"`

	// Workers is the number of independent queue consumers.
	Workers int `yaml:"workers" env:"WORKERS"`

	// Server (recompute/listing API and health check)
	Port     int    `yaml:"port" env:"PORT"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Defaults returns the configuration used when nothing overrides a field.
func Defaults() *Config {
	return &Config{
		Redis: RedisConfig{
			URL: "redis://localhost:6379/0",
			Queues: QueueConfig{
				Inbound:            "email_queue",
				Outreach:           "vendor_outreach_queue",
				InternalError:      "internal_error_queue",
				ManualIntervention: "manual_intervention_queue",
			},
			BlockTimeout:         5 * time.Second,
			MaxReconnectAttempts: 8,
			ReconnectBaseDelay:   500 * time.Millisecond,
			ReconnectMaxDelay:    30 * time.Second,
			DedupTTL:             72 * time.Hour,
		},
		Database: DatabaseConfig{
			MaxConns: 10,
		},
		FlightFinder: FlightFinderConfig{
			Timeout: 30 * time.Second,
		},
		Extraction: ExtractionConfig{
			Provider: ProviderOpenAI,
			Timeout:  60 * time.Second,
		},
		Search: SearchConfig{
			RadiusIncrement: 50,
			RadiusCap:       250,
		},
		Workers:     1,
		Port:        8000,
		LogLevel:    "info",
		CORSOrigins: []string{"*"},
	}
}

// Load reads configuration in increasing precedence: defaults, config.yaml
// (with ${VAR} expansion), then environment variables. A .env file in the
// working directory is loaded into the environment first when present.
//
// Load does not validate; the server calls Validate and broker-only tools
// call ValidateBroker.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	configPath := envOrDefault("CONFIG_PATH", "config.yaml")
	if err := loadFile(configPath, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.Extraction.Provider = strings.ToLower(strings.TrimSpace(cfg.Extraction.Provider))

	return cfg, nil
}

// loadFile merges the YAML file at path into cfg. A missing file is not an error.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config YAML: %w", err)
	}
	return nil
}

// ValidateBroker checks the settings needed to talk to the broker only.
func (c *Config) ValidateBroker() error {
	if strings.TrimSpace(c.Redis.URL) == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	q := c.Redis.Queues
	if q.Inbound == "" || q.Outreach == "" || q.InternalError == "" || q.ManualIntervention == "" {
		return fmt.Errorf("all queue names must be set")
	}
	return nil
}

// Validate reports the first missing or inconsistent setting for the server.
func (c *Config) Validate() error {
	if err := c.ValidateBroker(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.FlightFinder.BaseURL) == "" {
		return fmt.Errorf("FLIGHT_FINDER_BASE_URL is required")
	}
	switch c.Extraction.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unsupported extraction provider %q", c.Extraction.Provider)
	}
	if c.Extraction.APIKey() == "" {
		return fmt.Errorf("API key for extraction provider %q is required", c.Extraction.Provider)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Search.RadiusIncrement <= 0 || c.Search.RadiusCap < 0 {
		return fmt.Errorf("invalid search policy: increment=%d cap=%d", c.Search.RadiusIncrement, c.Search.RadiusCap)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
