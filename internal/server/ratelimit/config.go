package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule limits one route. Path segments equal to "*" match any single segment,
// and a path ending in "/" matches by prefix.
type Rule struct {
	Path   string
	Method string
	Limit  int           // requests per window
	Window time.Duration
	Burst  int // bucket capacity, Limit when zero
}

func (r *Rule) capacity() int {
	if r.Burst > 0 {
		return r.Burst
	}
	return r.Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTTL         time.Duration   // buckets unused this long are evicted, one hour when zero
	Trusted         map[string]bool // client IDs never limited
	Blocked         map[string]bool // client IDs always refused
	Rules           []Rule
}

func (c *Config) idleTTL() time.Duration {
	if c.IdleTTL > 0 {
		return c.IdleTTL
	}
	return time.Hour
}

// LoadConfig reads the RATE_LIMIT_* environment variables.
func LoadConfig() *Config {
	if !envBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envInt("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   envDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: envDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTTL:         envDuration("RATE_LIMIT_IDLE_TTL", time.Hour),
		Trusted:         parseList(os.Getenv("RATE_LIMIT_TRUSTED")),
		Blocked:         parseList(os.Getenv("RATE_LIMIT_BLOCKED")),
		Rules:           DefaultRules(),
	}
}

// DefaultRules returns the per-route limits of the API.
func DefaultRules() []Rule {
	return []Rule{
		// Grading calls the LLM once per copy.
		{Path: "/api/v1/exams/*/correct", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/api/v1/exams/*/correct/stream", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/api/v1/exams/*/copies/*/correct", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},

		{Path: "/api/v1/chatbot/message", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/api/v1/exams/*/copies/*/rectify", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/api/v1/exams/*/copies/*/flag", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},

		{Path: "/api/v1/exams/*/copies", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},

		{Path: "/api/v1/auth/login", Method: "POST", Limit: 20, Window: time.Minute, Burst: 5},
		{Path: "/api/v1/auth/register", Method: "POST", Limit: 20, Window: time.Minute, Burst: 5},
		{Path: "/api/v1/auth/password", Method: "PUT", Limit: 20, Window: time.Minute, Burst: 5},
	}
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

// parseList splits a comma-separated list of client IDs.
func parseList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result[item] = true
		}
	}
	return result
}
