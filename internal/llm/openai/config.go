package openai

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds OpenAI-compatible LLM configuration.
type Config struct {
	APIKey      string        // API key for authentication
	BaseURL     string        // Base URL (default: https://api.openai.com/v1)
	Model       string        // Model name (default: gpt-4o-mini)
	Temperature *float32      // Response creativity 0.0-2.0 (nil = API default)
	MaxTokens   int           // Max tokens in response, 0 = no limit
	Timeout     time.Duration // Per-request HTTP timeout, 0 = none
}

// NewConfigFromEnv creates Config from environment variables.
// Expected env vars: LLM_API_KEY, LLM_BASE_URL, LLM_MODEL, LLM_TEMPERATURE, LLM_MAX_TOKENS, LLM_TIMEOUT
// Malformed numeric values are errors, all reported at once.
func NewConfigFromEnv() (*Config, error) {
	var errs []error
	config := &Config{
		APIKey:      getEnvOrDefault("LLM_API_KEY", ""),
		BaseURL:     getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		Model:       getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		Temperature: getEnvFloat32Ptr("LLM_TEMPERATURE", &errs),
		MaxTokens:   getEnvIntOrDefault("LLM_MAX_TOKENS", 0, &errs),
		Timeout:     getEnvDurationOrDefault("LLM_TIMEOUT", 60*time.Second, &errs),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Configured reports whether an API key is present in the environment. The
// summarize recipe is only registered when it is.
func Configured() bool {
	return os.Getenv("LLM_API_KEY") != ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required. Set it in .env or environment")
	}
	if c.Model == "" {
		return fmt.Errorf("LLM_MODEL cannot be empty")
	}
	if c.Temperature != nil && (*c.Temperature < 0.0 || *c.Temperature > 2.0) {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0.0 and 2.0, got %f", *c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("LLM_MAX_TOKENS cannot be negative, got %d", c.MaxTokens)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("LLM_TIMEOUT cannot be negative, got %s", c.Timeout)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvFloat32Ptr(key string, errs *[]error) *float32 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(v, 32)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid number %q", key, v))
		return nil
	}
	f := float32(parsed)
	return &f
}

func getEnvIntOrDefault(key string, defaultValue int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return defaultValue
	}
	return parsed
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return defaultValue
	}
	return parsed
}
