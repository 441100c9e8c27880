// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all harness configuration.
type Config struct {
	// Storage configuration
	Storage StorageConfig `yaml:"storage"`

	// Generate configuration
	Generate GenerateConfig `yaml:"generate"`

	// Experiment configuration
	Experiment ExperimentConfig `yaml:"experiment"`

	// Restore configuration
	Restore RestoreConfig `yaml:"restore"`

	// Sanity configuration
	Sanity SanityConfig `yaml:"sanity"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// History configuration
	History HistoryConfig `yaml:"history"`

	// Report configuration
	Report ReportConfig `yaml:"report"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// StorageConfig holds collection store settings.
type StorageConfig struct {
	Type             string `envconfig:"ABLATE_STORAGE_TYPE" yaml:"type"`
	QdrantHost       string `envconfig:"ABLATE_QDRANT_HOST" yaml:"qdrant_host"`
	QdrantPort       int    `envconfig:"ABLATE_QDRANT_PORT" yaml:"qdrant_port"`
	QdrantAPIKey     string `envconfig:"ABLATE_QDRANT_API_KEY" yaml:"qdrant_api_key"`
	QdrantUseTLS     bool   `envconfig:"ABLATE_QDRANT_USE_TLS" yaml:"qdrant_use_tls"`
	CollectionPrefix string `envconfig:"ABLATE_COLLECTION_PREFIX" yaml:"collection_prefix"`
	TruthCollection  string `envconfig:"ABLATE_TRUTH_COLLECTION" yaml:"truth_collection"`
}

// GenerateConfig holds synthetic data generation settings.
type GenerateConfig struct {
	RecordsPerType int   `envconfig:"ABLATE_RECORDS_PER_TYPE" yaml:"records_per_type"`
	MatchCount     int   `envconfig:"ABLATE_MATCH_COUNT" yaml:"match_count"`
	NonMatchCount  int   `envconfig:"ABLATE_NON_MATCH_COUNT" yaml:"non_match_count"`
	QueriesPerRun  int   `envconfig:"ABLATE_QUERIES_PER_RUN" yaml:"queries_per_run"`
	Seed           int64 `envconfig:"ABLATE_SEED" yaml:"seed"`
}

// ExperimentConfig holds experimental design settings.
type ExperimentConfig struct {
	Iterations  int `envconfig:"ABLATE_ITERATIONS" yaml:"iterations"`
	ControlSize int `envconfig:"ABLATE_CONTROL_SIZE" yaml:"control_size"`
	QueryLimit  int `envconfig:"ABLATE_QUERY_LIMIT" yaml:"query_limit"`
}

// RestoreConfig holds backup reinsertion settings.
type RestoreConfig struct {
	// BatchSize bounds the size of one reinsert request.
	BatchSize int `envconfig:"ABLATE_RESTORE_BATCH_SIZE" yaml:"batch_size"`

	// RatePerSec limits reinserted documents per second. 0 = unlimited.
	RatePerSec float64 `envconfig:"ABLATE_RESTORE_RATE" yaml:"rate_per_sec"`
}

// SanityConfig holds data sanity check settings.
type SanityConfig struct {
	FailFast bool `envconfig:"ABLATE_FAIL_FAST" yaml:"fail_fast"`
}

// BusConfig holds result bus settings.
type BusConfig struct {
	Type         string `envconfig:"ABLATE_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"ABLATE_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaClient  string `envconfig:"ABLATE_KAFKA_CLIENT" yaml:"kafka_client"`
}

// HistoryConfig holds run-history settings.
type HistoryConfig struct {
	Enabled  bool   `envconfig:"ABLATE_HISTORY_ENABLED" yaml:"enabled"`
	RedisURL string `envconfig:"ABLATE_REDIS_URL" yaml:"redis_url"`
	TTLHours int    `envconfig:"ABLATE_HISTORY_TTL_HOURS" yaml:"ttl_hours"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	OutputDir string `envconfig:"ABLATE_OUTPUT_DIR" yaml:"output_dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"ABLATE_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"ABLATE_LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from defaults, an optional YAML file, and
// environment variables, in increasing priority order.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	setDefaults(cfg)

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Storage = StorageConfig{
		Type:             "memory",
		QdrantHost:       "localhost",
		QdrantPort:       6334,
		CollectionPrefix: "ablate_",
		TruthCollection:  "AblationGroundTruth",
	}

	cfg.Generate = GenerateConfig{
		RecordsPerType: 50,
		MatchCount:     5,
		NonMatchCount:  10,
		QueriesPerRun:  3,
		Seed:           42,
	}

	cfg.Experiment = ExperimentConfig{
		Iterations:  2,
		ControlSize: 4,
		QueryLimit:  100,
	}

	cfg.Restore = RestoreConfig{
		BatchSize:  100,
		RatePerSec: 0,
	}

	cfg.Sanity = SanityConfig{
		FailFast: true,
	}

	cfg.Bus = BusConfig{
		Type:        "memory",
		KafkaClient: "trace-ablate",
	}

	cfg.History = HistoryConfig{
		Enabled:  false,
		RedisURL: "redis://localhost:6379",
		TTLHours: 168,
	}

	cfg.Report = ReportConfig{
		OutputDir: "./ablation-results",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	validStorage := map[string]bool{"memory": true, "qdrant": true}
	if !validStorage[c.Storage.Type] {
		errs = append(errs, fmt.Sprintf("invalid storage type: %s (must be memory or qdrant)", c.Storage.Type))
	}

	if c.Storage.Type == "qdrant" {
		if c.Storage.QdrantPort < 1 || c.Storage.QdrantPort > 65535 {
			errs = append(errs, "qdrant_port must be between 1 and 65535")
		}
	}

	if c.Storage.TruthCollection == "" {
		errs = append(errs, "truth_collection cannot be empty")
	}

	if c.Generate.RecordsPerType < 1 {
		errs = append(errs, "records_per_type must be positive")
	}

	if c.Generate.MatchCount < 1 {
		errs = append(errs, "match_count must be positive")
	}

	if c.Generate.QueriesPerRun < 1 {
		errs = append(errs, "queries_per_run must be positive")
	}

	if c.Experiment.Iterations < 1 {
		errs = append(errs, "iterations must be positive")
	}

	if c.Experiment.ControlSize < 1 {
		errs = append(errs, "control_size must be positive")
	}

	if c.Experiment.QueryLimit < 1 {
		errs = append(errs, "query_limit must be positive")
	}

	if c.Restore.BatchSize < 1 {
		errs = append(errs, "restore batch_size must be positive")
	}

	if c.Restore.RatePerSec < 0 {
		errs = append(errs, "restore rate_per_sec cannot be negative")
	}

	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	if c.Bus.Type == "kafka" && c.Bus.KafkaBrokers == "" {
		errs = append(errs, "kafka_brokers cannot be empty for kafka bus")
	}

	if c.History.Enabled && c.History.RedisURL == "" {
		errs = append(errs, "redis_url cannot be empty when history is enabled")
	}

	if c.History.TTLHours < 0 {
		errs = append(errs, "history ttl_hours cannot be negative")
	}

	if c.Report.OutputDir == "" {
		errs = append(errs, "output_dir cannot be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
