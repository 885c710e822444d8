// Package config loads server configuration from the environment and the
// pipeline definition (sources, categorization rules) from a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Profiling     ProfilingConfig
	Observability ObservabilityConfig
	Pipeline      PipelineConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the PostgreSQL connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type ProfilingConfig struct {
	Enabled bool
	Port    int
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

// PipelineConfig is the YAML-file portion of the configuration. It defines
// which sources are enabled, how often the ingestion cycle runs, and the
// keyword rules for the deterministic categorization pass.
type PipelineConfig struct {
	Currency        string        `yaml:"currency"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	Email      EmailSourceConfig     `yaml:"email"`
	SMS        SMSSourceConfig       `yaml:"sms"`
	Statements StatementSourceConfig `yaml:"statements"`

	// DisplayNames maps a source tag to a human-readable merchant label
	// used when no merchant anchor matches in the message text.
	DisplayNames map[string]string `yaml:"display_names"`

	// Rules are evaluated in file order; the first matching category wins.
	Rules []CategoryRule `yaml:"rules"`
}

type EmailSourceConfig struct {
	Enabled bool   `yaml:"enabled"`
	FeedURL string `yaml:"feed_url"`
	// Queries maps a source tag (e.g. "amazon") to the feed search query.
	// Each entry is fetched as its own source during a cycle.
	Queries    map[string]string `yaml:"queries"`
	MaxResults int               `yaml:"max_results_per_query"`
}

type SMSSourceConfig struct {
	Enabled    bool   `yaml:"enabled"`
	GatewayURL string `yaml:"gateway_url"`
}

type StatementSourceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Folder  string `yaml:"folder"`
}

// CategoryRule maps one category to the keywords that select it.
type CategoryRule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// Load reads configuration from environment variables and, when
// PIPELINE_CONFIG points at a YAML file, merges the pipeline definition.
func Load() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	serverPort, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "0.0.0.0"),
			Port:               serverPort,
			RateLimitPerSecond: getEnvInt("RATE_LIMIT_PER_SECOND", 10),
			RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "finance_ingest"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Profiling: ProfilingConfig{
			Enabled: getEnvBool("PPROF_ENABLED", false),
			Port:    getEnvInt("PPROF_PORT", 6060),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		},
		Pipeline: defaultPipeline(),
	}

	if path := os.Getenv("PIPELINE_CONFIG"); path != "" {
		pipeline, err := LoadPipeline(path)
		if err != nil {
			return nil, err
		}
		cfg.Pipeline = *pipeline
	}

	return cfg, nil
}

// LoadPipeline parses the pipeline YAML file.
func LoadPipeline(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline config: %w", err)
	}

	pipeline := defaultPipeline()
	if err := yaml.Unmarshal(data, &pipeline); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config: %w", err)
	}

	if pipeline.Currency == "" {
		pipeline.Currency = "INR"
	}
	if pipeline.Email.MaxResults <= 0 {
		pipeline.Email.MaxResults = 100
	}

	return &pipeline, nil
}

func defaultPipeline() PipelineConfig {
	return PipelineConfig{
		Currency:        "INR",
		RefreshInterval: 5 * time.Minute,
		DisplayNames: map[string]string{
			"amazon":   "Amazon.in",
			"flipkart": "Flipkart",
			"sbi_txn":  "SBI",
			"sbi_stmt": "SBI Card",
		},
		Email: EmailSourceConfig{MaxResults: 100},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
