// Package config loads the runtime configuration of pocketflow: defaults, then an
// optional YAML file, then POCKETFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pocketomega/pocket-flow/pkg/core"
)

// EnvConfigFile names the YAML file to load when no explicit path is given.
const EnvConfigFile = "POCKETFLOW_CONFIG"

// Config is the complete runtime configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Store     StoreConfig     `yaml:"store"`
}

// EngineConfig holds the defaults applied to every recipe's nodes and flows.
type EngineConfig struct {
	MaxRetries     int           `yaml:"max_retries"`
	Wait           time.Duration `yaml:"wait"`
	MaxConcurrency int           `yaml:"max_concurrency"` // 0 = unbounded fan-out
	MaxSteps       int           `yaml:"max_steps"`       // 0 = unbounded traversal
}

// Options converts the engine defaults into core options.
func (e EngineConfig) Options() []core.Option {
	return []core.Option{
		core.WithRetry(core.RetryPolicy{MaxRetries: e.MaxRetries, Wait: e.Wait}),
		core.WithMaxConcurrency(e.MaxConcurrency),
		core.WithMaxSteps(e.MaxSteps),
	}
}

// LogConfig selects the zap logger built at startup.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// HTTPConfig configures `pocketflow serve`.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	Metrics         bool          `yaml:"metrics"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	ServiceName  string  `yaml:"service_name"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// StoreConfig selects where run records are kept. An empty RedisAddr keeps them in memory.
type StoreConfig struct {
	RedisAddr      string        `yaml:"redis_addr"`
	RedisPassword  string        `yaml:"redis_password"`
	RedisDB        int           `yaml:"redis_db"`
	TTL            time.Duration `yaml:"ttl"`
	MemoryCapacity int           `yaml:"memory_capacity"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{MaxRetries: 1},
		Log:    LogConfig{Level: "info", Format: "console"},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			Metrics:         true,
			ShutdownTimeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "pocketflow",
			SampleRate:   1.0,
		},
		Store: StoreConfig{MemoryCapacity: 256},
	}
}

// Load builds the configuration. path may be empty, in which case
// $POCKETFLOW_CONFIG is consulted; a missing variable means no file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("engine.max_retries must be at least 1, got %d", c.Engine.MaxRetries))
	}
	if c.Engine.Wait < 0 {
		errs = append(errs, fmt.Errorf("engine.wait cannot be negative, got %s", c.Engine.Wait))
	}
	if c.Engine.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("engine.max_concurrency cannot be negative, got %d", c.Engine.MaxConcurrency))
	}
	if c.Engine.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("engine.max_steps cannot be negative, got %d", c.Engine.MaxSteps))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format must be 'json' or 'console', got %q", c.Log.Format))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr cannot be empty"))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %g", c.Telemetry.SampleRate))
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		errs = append(errs, errors.New("telemetry.otlp_endpoint is required when tracing is enabled"))
	}
	if c.Store.MemoryCapacity < 1 {
		errs = append(errs, fmt.Errorf("store.memory_capacity must be at least 1, got %d", c.Store.MemoryCapacity))
	}
	if c.Store.TTL < 0 {
		errs = append(errs, fmt.Errorf("store.ttl cannot be negative, got %s", c.Store.TTL))
	}
	return errors.Join(errs...)
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, v))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, v))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid boolean %q", key, v))
				return
			}
			*dst = b
		}
	}
	float := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid number %q", key, v))
				return
			}
			*dst = f
		}
	}

	num("POCKETFLOW_MAX_RETRIES", &c.Engine.MaxRetries)
	dur("POCKETFLOW_WAIT", &c.Engine.Wait)
	num("POCKETFLOW_MAX_CONCURRENCY", &c.Engine.MaxConcurrency)
	num("POCKETFLOW_MAX_STEPS", &c.Engine.MaxSteps)

	str("POCKETFLOW_LOG_LEVEL", &c.Log.Level)
	str("POCKETFLOW_LOG_FORMAT", &c.Log.Format)

	str("POCKETFLOW_HTTP_ADDR", &c.HTTP.Addr)
	flag("POCKETFLOW_METRICS", &c.HTTP.Metrics)
	dur("POCKETFLOW_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout)

	flag("POCKETFLOW_TRACING", &c.Telemetry.Enabled)
	str("POCKETFLOW_OTLP_ENDPOINT", &c.Telemetry.OTLPEndpoint)
	str("POCKETFLOW_SERVICE_NAME", &c.Telemetry.ServiceName)
	float("POCKETFLOW_SAMPLE_RATE", &c.Telemetry.SampleRate)

	str("POCKETFLOW_REDIS_ADDR", &c.Store.RedisAddr)
	str("POCKETFLOW_REDIS_PASSWORD", &c.Store.RedisPassword)
	num("POCKETFLOW_REDIS_DB", &c.Store.RedisDB)
	dur("POCKETFLOW_RUN_TTL", &c.Store.TTL)
	num("POCKETFLOW_RUN_CAPACITY", &c.Store.MemoryCapacity)

	return errors.Join(errs...)
}
