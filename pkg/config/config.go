// Package config provides the configuration model for handlepool.
// A single PoolConfig describes one pool, how it is observed and how the
// load simulator drives it.
//
// The configuration is organized into logical sections:
//   - Pool: bounds, rate gate and idle validation
//   - Observability: logging, metrics and tracing
//   - Simulation: worker count, duration and handle behaviour for load runs
//
// Example usage:
//
//	cfg := config.NewPoolConfig("sessions")
//	cfg.Pool.Max = 32
//	cfg.Pool.Delay = 10 * time.Millisecond
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"time"

	"github.com/ajitpratap0/handlepool/pkg/errors"
)

// PoolConfig is the root configuration structure
type PoolConfig struct {
	// Name identifies the pool in logs and metrics
	Name string `yaml:"name" json:"name" mapstructure:"name"`

	// Pool settings control population and admission
	Pool PoolSettings `yaml:"pool" json:"pool" mapstructure:"pool"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`

	// Simulation settings for load runs
	Simulation SimulationConfig `yaml:"simulation" json:"simulation" mapstructure:"simulation"`
}

// PoolSettings contains the bounds and rate gate of a pool
type PoolSettings struct {
	// Min is the floor on the handle population
	Min int `yaml:"min" json:"min" mapstructure:"min"`
	// Max is the ceiling on the handle population
	Max int `yaml:"max" json:"max" mapstructure:"max"`
	// Delay is the minimum spacing between acquisitions (0 = unlimited)
	Delay time.Duration `yaml:"delay" json:"delay" mapstructure:"delay"`
	// ValidateOnAcquire re-checks idle handles before handing them out
	ValidateOnAcquire bool `yaml:"validate_on_acquire" json:"validate_on_acquire" mapstructure:"validate_on_acquire"`
}

// ObservabilityConfig contains monitoring and observability settings
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	// LogEncoding selects json or console output
	LogEncoding string `yaml:"log_encoding" json:"log_encoding" mapstructure:"log_encoding"`
	// EnableMetrics activates Prometheus metrics
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics" mapstructure:"enable_metrics"`
	// MetricsAddr is the listen address for /metrics (empty = do not serve)
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr" mapstructure:"metrics_addr"`
	// EnableTracing activates OpenTelemetry tracing
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing" mapstructure:"enable_tracing"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate" mapstructure:"tracing_sample_rate"`
}

// SimulationConfig describes a load run against a pool
type SimulationConfig struct {
	// Workers is the number of concurrent callers
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers"`
	// Duration bounds the run
	Duration time.Duration `yaml:"duration" json:"duration" mapstructure:"duration"`
	// HoldTime is how long a worker keeps a handle checked out
	HoldTime time.Duration `yaml:"hold_time" json:"hold_time" mapstructure:"hold_time"`
	// DeadRatio is the share of released handles classified as dead (0.0-1.0)
	DeadRatio float64 `yaml:"dead_ratio" json:"dead_ratio" mapstructure:"dead_ratio"`
	// FactoryFailureRate is the share of handle constructions that fail (0.0-1.0)
	FactoryFailureRate float64 `yaml:"factory_failure_rate" json:"factory_failure_rate" mapstructure:"factory_failure_rate"`
	// RetryBackoff is how long a worker waits after an unavailable result
	RetryBackoff time.Duration `yaml:"retry_backoff" json:"retry_backoff" mapstructure:"retry_backoff"`
}

// NewPoolConfig creates a PoolConfig with defaults: bounds 0..10, no rate
// gate, info-level JSON logs, metrics on, tracing off, and a short
// four-worker simulation.
func NewPoolConfig(name string) *PoolConfig {
	return &PoolConfig{
		Name: name,
		Pool: PoolSettings{
			Min:   0,
			Max:   10,
			Delay: 0,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogEncoding:       "json",
			EnableMetrics:     true,
			EnableTracing:     false,
			TracingSampleRate: 0.1,
		},
		Simulation: SimulationConfig{
			Workers:      4,
			Duration:     5 * time.Second,
			HoldTime:     10 * time.Millisecond,
			DeadRatio:    0,
			RetryBackoff: 5 * time.Millisecond,
		},
	}
}

// Validate validates the configuration for correctness.
// Bounds follow the pool's own rules: min >= 0, max >= 1, min <= max.
func (c *PoolConfig) Validate() error {
	if c.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "name is required")
	}
	if c.Pool.Min < 0 || c.Pool.Max < 1 || c.Pool.Min > c.Pool.Max {
		return errors.Newf(errors.ErrorTypeInvalidBounds,
			"pool bounds min=%d max=%d are invalid", c.Pool.Min, c.Pool.Max)
	}
	if c.Pool.Delay < 0 {
		return errors.New(errors.ErrorTypeConfig, "pool.delay cannot be negative")
	}
	if c.Observability.TracingSampleRate < 0 || c.Observability.TracingSampleRate > 1 {
		return errors.New(errors.ErrorTypeConfig, "observability.tracing_sample_rate must be between 0 and 1")
	}
	if c.Simulation.Workers <= 0 {
		return errors.New(errors.ErrorTypeConfig, "simulation.workers must be positive")
	}
	if c.Simulation.Duration <= 0 {
		return errors.New(errors.ErrorTypeConfig, "simulation.duration must be positive")
	}
	if c.Simulation.HoldTime < 0 || c.Simulation.RetryBackoff < 0 {
		return errors.New(errors.ErrorTypeConfig, "simulation durations cannot be negative")
	}
	if !isRatio(c.Simulation.DeadRatio) || !isRatio(c.Simulation.FactoryFailureRate) {
		return errors.New(errors.ErrorTypeConfig, "simulation ratios must be between 0 and 1")
	}
	return nil
}

func isRatio(v float64) bool {
	return v >= 0 && v <= 1
}

// IsRateLimited returns true if the rate gate is enabled
func (p *PoolSettings) IsRateLimited() bool {
	return p.Delay > 0
}

// ServesMetrics returns true if a /metrics endpoint should be started
func (o *ObservabilityConfig) ServesMetrics() bool {
	return o.EnableMetrics && o.MetricsAddr != ""
}
