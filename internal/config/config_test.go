package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ── Load ──

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "pocketflow.yaml", `
engine:
  max_retries: 3
  wait: 250ms
  max_concurrency: 4
log:
  level: debug
  format: json
store:
  redis_addr: localhost:6379
  ttl: 1h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Engine.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.Wait)
	assert.Equal(t, 4, cfg.Engine.MaxConcurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.Equal(t, time.Hour, cfg.Store.TTL)
	// untouched keys keep their defaults
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 256, cfg.Store.MemoryCapacity)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "pocketflow.yaml", "engine:\n  max_retries: 3\n")
	t.Setenv(EnvConfigFile, path)
	t.Setenv("POCKETFLOW_MAX_RETRIES", "5")
	t.Setenv("POCKETFLOW_WAIT", "2s")
	t.Setenv("POCKETFLOW_TRACING", "true")
	t.Setenv("POCKETFLOW_SAMPLE_RATE", "0.5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Engine.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Engine.Wait)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.InDelta(t, 0.5, cfg.Telemetry.SampleRate, 1e-9)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("POCKETFLOW_MAX_STEPS", "many")
	t.Setenv("POCKETFLOW_METRICS", "perhaps")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POCKETFLOW_MAX_STEPS")
	assert.Contains(t, err.Error(), "POCKETFLOW_METRICS")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "engine: [unclosed\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config file")
}

// ── Validate ──

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero retries", func(c *Config) { c.Engine.MaxRetries = 0 }, "engine.max_retries"},
		{"negative wait", func(c *Config) { c.Engine.Wait = -time.Second }, "engine.wait"},
		{"negative concurrency", func(c *Config) { c.Engine.MaxConcurrency = -1 }, "engine.max_concurrency"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"sample rate", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "telemetry.sample_rate"},
		{"tracing without endpoint", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.OTLPEndpoint = ""
		}, "telemetry.otlp_endpoint"},
		{"capacity", func(c *Config) { c.Store.MemoryCapacity = 0 }, "store.memory_capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestEngineConfig_Options(t *testing.T) {
	opts := EngineConfig{MaxRetries: 2, Wait: time.Second, MaxConcurrency: 3}.Options()
	assert.Len(t, opts, 3)
}

// ── .env ──

func TestLoadEnv_ExplicitPath(t *testing.T) {
	path := writeFile(t, ".env", "POCKETFLOW_TEST_VALUE=from-dotenv\n")
	t.Setenv("POCKETFLOW_TEST_VALUE", "")
	os.Unsetenv("POCKETFLOW_TEST_VALUE")

	loaded := LoadEnv(zaptest.NewLogger(t), path)
	assert.Equal(t, path, loaded)
	assert.Equal(t, "from-dotenv", os.Getenv("POCKETFLOW_TEST_VALUE"))
}

func TestLoadEnv_MissingExplicitPath(t *testing.T) {
	loaded := LoadEnv(zaptest.NewLogger(t), filepath.Join(t.TempDir(), "missing.env"))
	assert.Empty(t, loaded)
}

func TestResolveEnvCandidates_IncludesWorkingDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	candidates := resolveEnvCandidates()
	assert.Contains(t, candidates, filepath.Join(cwd, ".env"))

	seen := map[string]bool{}
	for _, c := range candidates {
		assert.False(t, seen[c], "duplicate candidate %s", c)
		seen[c] = true
	}
}

func TestEnvFilePath_FindsWorkingDirFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cwd, err := os.Getwd()
	require.NoError(t, err)
	want := filepath.Join(cwd, ".env")
	require.NoError(t, os.WriteFile(want, []byte("A=1\n"), 0o600))

	assert.Equal(t, want, EnvFilePath())
}
