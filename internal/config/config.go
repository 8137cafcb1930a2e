// Package config provides configuration loading and validation for the exam grader server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds the server configuration.
// Environment variables win over an optional JSON file, which wins over the defaults.
type Config struct {
	Port               int      `json:"port,omitempty"`                // HTTP port
	DatabaseURL        string   `json:"database_url,omitempty"`        // PostgreSQL connection URL
	UploadDir          string   `json:"upload_dir,omitempty"`          // Directory where copy files are stored
	MaxUploadMB        int      `json:"max_upload_mb,omitempty"`       // Maximum multipart body size
	APIKey             string   `json:"api_key,omitempty"`             // Gemini API key; grading is disabled when empty
	GradingConcurrency int      `json:"grading_concurrency,omitempty"` // Copies graded in parallel by batch corrections
	CORSOrigins        []string `json:"cors_origins,omitempty"`        // Allowed origins ("*" by default)
}

// Defaults used when neither the environment nor the file sets a value.
const (
	DefaultPort               = 8000
	DefaultUploadDir          = "uploads"
	DefaultMaxUploadMB        = 25
	DefaultGradingConcurrency = 4
)

// NewServerConfig builds a Config from environment variables, falling back to
// the JSON file at path when path is set.
// It reads PORT, DATABASE_URL (required), UPLOAD_DIR, MAX_UPLOAD_MB, GEMINI_API_KEY,
// GRADING_CONCURRENCY and CORS_ORIGINS (comma separated).
func NewServerConfig(path string) (*Config, error) {
	var fromFile Config
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		fromFile = *loaded
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		UploadDir:   os.Getenv("UPLOAD_DIR"),
		APIKey:      os.Getenv("GEMINI_API_KEY"),
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
	}

	var err error
	if cfg.Port, err = envInt("PORT"); err != nil {
		return nil, err
	}
	if cfg.MaxUploadMB, err = envInt("MAX_UPLOAD_MB"); err != nil {
		return nil, err
	}
	if cfg.GradingConcurrency, err = envInt("GRADING_CONCURRENCY"); err != nil {
		return nil, err
	}

	merged := cfg.MergeWithDefaults(fromFile)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: 'database_url' is required (DATABASE_URL)")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' out of range: %d", c.Port)
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("config error: 'max_upload_mb' must be positive")
	}
	if c.GradingConcurrency < 1 || c.GradingConcurrency > 64 {
		return fmt.Errorf("config error: 'grading_concurrency' must be between 1 and 64, got %d", c.GradingConcurrency)
	}
	if c.UploadDir == "" {
		return fmt.Errorf("config error: 'upload_dir' cannot be empty")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults,
// then from the package defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.UploadDir == "" {
		result.UploadDir = firstNonEmpty(defaults.UploadDir, DefaultUploadDir)
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if len(result.CORSOrigins) == 0 {
		result.CORSOrigins = defaults.CORSOrigins
	}
	if len(result.CORSOrigins) == 0 {
		result.CORSOrigins = []string{"*"}
	}

	if result.Port == 0 {
		result.Port = firstPositive(defaults.Port, DefaultPort)
	}
	if result.MaxUploadMB == 0 {
		result.MaxUploadMB = firstPositive(defaults.MaxUploadMB, DefaultMaxUploadMB)
	}
	if result.GradingConcurrency == 0 {
		result.GradingConcurrency = firstPositive(defaults.GradingConcurrency, DefaultGradingConcurrency)
	}

	return result
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// GradingEnabled reports whether an LLM provider is configured.
func (c *Config) GradingEnabled() bool {
	return c.APIKey != ""
}

func envInt(key string) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}

func splitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
