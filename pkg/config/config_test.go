package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/handlepool/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PoolConfig)
		errType errors.ErrorType
	}{
		{"defaults", func(*PoolConfig) {}, ""},
		{"missing name", func(c *PoolConfig) { c.Name = "" }, errors.ErrorTypeConfig},
		{"negative min", func(c *PoolConfig) { c.Pool.Min = -1 }, errors.ErrorTypeInvalidBounds},
		{"zero max", func(c *PoolConfig) { c.Pool.Max = 0 }, errors.ErrorTypeInvalidBounds},
		{"min above max", func(c *PoolConfig) { c.Pool.Min, c.Pool.Max = 10, 1 }, errors.ErrorTypeInvalidBounds},
		{"negative delay", func(c *PoolConfig) { c.Pool.Delay = -time.Second }, errors.ErrorTypeConfig},
		{"sample rate", func(c *PoolConfig) { c.Observability.TracingSampleRate = 2 }, errors.ErrorTypeConfig},
		{"no workers", func(c *PoolConfig) { c.Simulation.Workers = 0 }, errors.ErrorTypeConfig},
		{"no duration", func(c *PoolConfig) { c.Simulation.Duration = 0 }, errors.ErrorTypeConfig},
		{"dead ratio", func(c *PoolConfig) { c.Simulation.DeadRatio = 1.5 }, errors.ErrorTypeConfig},
		{"failure rate", func(c *PoolConfig) { c.Simulation.FactoryFailureRate = -0.1 }, errors.ErrorTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewPoolConfig("p")
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errType == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsType(err, tt.errType), "got %v", err)
		})
	}
}

func TestLoadPoolConfigWithEnv(t *testing.T) {
	t.Setenv("TEST_POOL_MAX", "32")

	path := filepath.Join(t.TempDir(), "pool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: sessions
pool:
  min: 2
  max: ${TEST_POOL_MAX}
  delay: 25ms
simulation:
  workers: 8
  dead_ratio: 0.25
`), 0o600))

	cfg, err := LoadPoolConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sessions", cfg.Name)
	assert.Equal(t, 2, cfg.Pool.Min)
	assert.Equal(t, 32, cfg.Pool.Max)
	assert.Equal(t, 25*time.Millisecond, cfg.Pool.Delay)
	assert.Equal(t, 8, cfg.Simulation.Workers)
	assert.Equal(t, 0.25, cfg.Simulation.DeadRatio)
	// untouched keys keep their defaults
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Simulation.Duration)
}

func TestLoadPoolConfigRejectsInvalidBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: p\npool:\n  min: 10\n  max: 1\n"), 0o600))

	_, err := LoadPoolConfig(path)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidBounds))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadPoolConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := NewPoolConfig("saved")
	cfg.Pool.Max = 3

	require.NoError(t, Save(path, cfg))
	loaded, err := LoadPoolConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_A", "x")

	assert.Equal(t, "x-y", substituteEnvVars("${TEST_A}-y"))
	assert.Equal(t, "-", substituteEnvVars("${TEST_UNSET_VAR}-"))
	assert.Equal(t, "keep ${open", substituteEnvVars("keep ${open"))
	assert.Equal(t, "$PLAIN", substituteEnvVars("$PLAIN"))
}
