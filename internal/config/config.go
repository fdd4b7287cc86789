// Package config provides configuration management for the income
// classification pipeline
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the configuration for a training run and for serving
type Config struct {
	// Data Configuration
	DataPath     string `json:"data_path" yaml:"data_path"`         // Path to the raw CSV dataset
	ArtifactPath string `json:"artifact_path" yaml:"artifact_path"` // Path of the persisted champion artifact
	SchemaPath   string `json:"schema_path" yaml:"schema_path"`     // Optional YAML feature schema ("" = built-in census schema)

	// Training Configuration
	TestFraction float64 `json:"test_fraction" yaml:"test_fraction"` // Held-out fraction of the dataset
	CVFolds      int     `json:"cv_folds" yaml:"cv_folds"`           // Number of cross-validation folds
	Seed         int64   `json:"seed" yaml:"seed"`                   // Seed for splits and stochastic families

	// Parallelism Configuration
	WorkerPoolSize int `json:"worker_pool_size" yaml:"worker_pool_size"` // Number of worker goroutines (0 = auto-detect)

	// Debugging Configuration
	VerboseLogging bool `json:"verbose_logging" yaml:"verbose_logging"` // Enable verbose logging
}

// Default configuration values
const (
	DefaultArtifactPath = "artifacts/champion.bin"
	DefaultTestFraction = 0.30
	DefaultCVFolds      = 5
	DefaultSeed         = 42
)

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		ArtifactPath: DefaultArtifactPath,
		TestFraction: DefaultTestFraction,
		CVFolds:      DefaultCVFolds,
		Seed:         DefaultSeed,

		WorkerPoolSize: 0, // Auto-detect

		VerboseLogging: false,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.TestFraction <= 0.0 || c.TestFraction >= 1.0 {
		return fmt.Errorf("TestFraction must be in (0, 1), got %f", c.TestFraction)
	}

	if c.CVFolds < 2 {
		return fmt.Errorf("CVFolds must be at least 2, got %d", c.CVFolds)
	}

	if c.WorkerPoolSize < 0 {
		return fmt.Errorf("WorkerPoolSize must be non-negative, got %d", c.WorkerPoolSize)
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.ArtifactPath == "" {
		c.ArtifactPath = defaults.ArtifactPath
	}
	if c.TestFraction == 0.0 {
		c.TestFraction = defaults.TestFraction
	}
	if c.CVFolds == 0 {
		c.CVFolds = defaults.CVFolds
	}
	if c.Seed == 0 {
		c.Seed = defaults.Seed
	}

	// Note: WorkerPoolSize zero means auto-detect and VerboseLogging false is
	// a valid explicit setting, so neither is defaulted here.

	return c
}

// Workers resolves the effective worker pool size.
func (c Config) Workers() int {
	if c.WorkerPoolSize > 0 {
		return c.WorkerPoolSize
	}
	return runtime.NumCPU()
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON and YAML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() Config {
	config := NewConfig()

	if val := os.Getenv("INCOMECLF_DATA_PATH"); val != "" {
		config.DataPath = val
	}

	if val := os.Getenv("INCOMECLF_ARTIFACT_PATH"); val != "" {
		config.ArtifactPath = val
	}

	if val := os.Getenv("INCOMECLF_SCHEMA_PATH"); val != "" {
		config.SchemaPath = val
	}

	if val := os.Getenv("INCOMECLF_TEST_FRACTION"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.TestFraction = parsed
		}
	}

	if val := os.Getenv("INCOMECLF_CV_FOLDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.CVFolds = parsed
		}
	}

	if val := os.Getenv("INCOMECLF_SEED"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.Seed = parsed
		}
	}

	if val := os.Getenv("INCOMECLF_WORKER_POOL_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.WorkerPoolSize = parsed
		}
	}

	if val := os.Getenv("INCOMECLF_VERBOSE_LOGGING"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.VerboseLogging = parsed
		}
	}

	return config
}
