// Package llm provides centralized LLM configuration and client abstractions.
// Grading, document transcription and the chatbot all go through the Client interface.
package llm

import (
	"fmt"
	"os"
	"strconv"
)

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: chat replies, claim acknowledgements
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: transcription, structured output
	TierStandard ModelTier = "standard"
	// TierAdvanced is for complex reasoning: grading against an answer key
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// DefaultTemperature keeps grading output stable between runs.
const DefaultTemperature float32 = 0.1

// DefaultMaxRetries is how many times a transient provider error is retried.
const DefaultMaxRetries = 2

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
	MaxRetries  int
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: DefaultTemperature,
		MaxRetries:  DefaultMaxRetries,
	}
}

// ConfigFromEnv returns the default configuration with per-tier overrides from
// LLM_MODEL_LITE, LLM_MODEL_STANDARD and LLM_MODEL_ADVANCED, plus LLM_TEMPERATURE
// and LLM_MAX_RETRIES.
func ConfigFromEnv() (*Config, error) {
	cfg := DefaultConfig()
	overrides := map[ModelTier]string{
		TierLite:     "LLM_MODEL_LITE",
		TierStandard: "LLM_MODEL_STANDARD",
		TierAdvanced: "LLM_MODEL_ADVANCED",
	}
	for tier, key := range overrides {
		if model := os.Getenv(key); model != "" {
			cfg = cfg.WithModel(tier, model)
		}
	}
	if raw := os.Getenv("LLM_TEMPERATURE"); raw != "" {
		temp, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %v", err)
		}
		if temp < 0 || temp > 2 {
			return nil, fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %v", temp)
		}
		cfg.Temperature = float32(temp)
	}
	if raw := os.Getenv("LLM_MAX_RETRIES"); raw != "" {
		retries, err := strconv.Atoi(raw)
		if err != nil || retries < 0 {
			return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %q", raw)
		}
		cfg.MaxRetries = retries
	}
	return cfg, nil
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelTier]string),
		Temperature: c.Temperature,
		MaxRetries:  c.MaxRetries,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}
