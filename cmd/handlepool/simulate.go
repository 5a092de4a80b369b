package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/handlepool/internal/simulate"
	"github.com/ajitpratap0/handlepool/pkg/config"
	"github.com/ajitpratap0/handlepool/pkg/logger"
	"github.com/ajitpratap0/handlepool/pkg/metrics"
	"github.com/ajitpratap0/handlepool/pkg/observability"
)

const envPrefix = "HANDLEPOOL"

// flagKeys maps simulate flags to configuration keys
var flagKeys = map[string]string{
	"name":                 "name",
	"min":                  "pool.min",
	"max":                  "pool.max",
	"delay":                "pool.delay",
	"validate-on-acquire":  "pool.validate_on_acquire",
	"log-level":            "observability.log_level",
	"log-encoding":         "observability.log_encoding",
	"metrics-addr":         "observability.metrics_addr",
	"enable-tracing":       "observability.enable_tracing",
	"tracing-sample-rate":  "observability.tracing_sample_rate",
	"workers":              "simulation.workers",
	"duration":             "simulation.duration",
	"hold-time":            "simulation.hold_time",
	"dead-ratio":           "simulation.dead_ratio",
	"factory-failure-rate": "simulation.factory_failure_rate",
	"retry-backoff":        "simulation.retry_backoff",
}

func newSimulateCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a pool with concurrent workers and report the outcome",
		Long: `Run a load simulation against a fresh pool. Settings come from the
optional --config file, then HANDLEPOOL_* environment variables
(e.g. HANDLEPOOL_POOL_MAX), then flags.

Example:
  handlepool simulate --max 4 --delay 5ms --workers 16 --duration 10s --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, configFile)
			if err != nil {
				return err
			}
			return runSimulation(cmd, cfg)
		},
	}

	defaults := config.NewPoolConfig("default")
	f := cmd.Flags()
	f.StringVarP(&configFile, "config", "c", "", "Path to pool configuration YAML file")
	f.String("name", defaults.Name, "Pool name used in logs and metrics")
	f.Int("min", defaults.Pool.Min, "Minimum handle population")
	f.Int("max", defaults.Pool.Max, "Maximum handle population")
	f.Duration("delay", defaults.Pool.Delay, "Minimum spacing between acquisitions (0 disables the rate gate)")
	f.Bool("validate-on-acquire", defaults.Pool.ValidateOnAcquire, "Re-check idle handles before handing them out")
	f.String("log-level", defaults.Observability.LogLevel, "Log level (debug, info, warn, error)")
	f.String("log-encoding", defaults.Observability.LogEncoding, "Log encoding (json, console)")
	f.String("metrics-addr", defaults.Observability.MetricsAddr, "Serve Prometheus metrics on this address while the run lasts")
	f.Bool("enable-tracing", defaults.Observability.EnableTracing, "Export OpenTelemetry spans to stderr")
	f.Float64("tracing-sample-rate", defaults.Observability.TracingSampleRate, "Trace sampling ratio (0.0-1.0)")
	f.Int("workers", defaults.Simulation.Workers, "Number of concurrent workers")
	f.Duration("duration", defaults.Simulation.Duration, "Length of the run")
	f.Duration("hold-time", defaults.Simulation.HoldTime, "How long a worker keeps a handle")
	f.Float64("dead-ratio", defaults.Simulation.DeadRatio, "Share of handles marked dead before release")
	f.Float64("factory-failure-rate", defaults.Simulation.FactoryFailureRate, "Share of handle constructions that fail")
	f.Duration("retry-backoff", defaults.Simulation.RetryBackoff, "Wait after an unavailable acquisition")

	return cmd
}

// resolveConfig layers the config file, HANDLEPOOL_* environment variables
// and explicitly set flags, in increasing order of precedence.
func resolveConfig(cmd *cobra.Command, configFile string) (*config.PoolConfig, error) {
	base := config.NewPoolConfig("default")
	if configFile != "" {
		loaded, err := config.LoadPoolConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
		base = loaded
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, base)

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	cfg := &config.PoolConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it on Unmarshal
func setDefaults(v *viper.Viper, cfg *config.PoolConfig) {
	v.SetDefault("name", cfg.Name)
	v.SetDefault("pool.min", cfg.Pool.Min)
	v.SetDefault("pool.max", cfg.Pool.Max)
	v.SetDefault("pool.delay", cfg.Pool.Delay)
	v.SetDefault("pool.validate_on_acquire", cfg.Pool.ValidateOnAcquire)
	v.SetDefault("observability.log_level", cfg.Observability.LogLevel)
	v.SetDefault("observability.log_encoding", cfg.Observability.LogEncoding)
	v.SetDefault("observability.enable_metrics", cfg.Observability.EnableMetrics)
	v.SetDefault("observability.metrics_addr", cfg.Observability.MetricsAddr)
	v.SetDefault("observability.enable_tracing", cfg.Observability.EnableTracing)
	v.SetDefault("observability.tracing_sample_rate", cfg.Observability.TracingSampleRate)
	v.SetDefault("simulation.workers", cfg.Simulation.Workers)
	v.SetDefault("simulation.duration", cfg.Simulation.Duration)
	v.SetDefault("simulation.hold_time", cfg.Simulation.HoldTime)
	v.SetDefault("simulation.dead_ratio", cfg.Simulation.DeadRatio)
	v.SetDefault("simulation.factory_failure_rate", cfg.Simulation.FactoryFailureRate)
	v.SetDefault("simulation.retry_backoff", cfg.Simulation.RetryBackoff)
}

func runSimulation(cmd *cobra.Command, cfg *config.PoolConfig) error {
	if err := logger.Init(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: cfg.Observability.LogEncoding,
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	log := logger.With(zap.String("component", "handlepool-cli"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.EnableTracing {
		tc := observability.DefaultConfig()
		tc.ServiceVersion = version
		tc.SamplingRate = cfg.Observability.TracingSampleRate
		tc.Writer = os.Stderr
		if err := observability.Initialize(tc); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := observability.Shutdown(shutdownCtx); err != nil {
				log.Warn("failed to flush traces", zap.Error(err))
			}
		}()
	}

	opts := []simulate.Option{simulate.WithLogger(log)}
	if cfg.Observability.EnableMetrics {
		reg := prometheus.NewRegistry()
		opts = append(opts, simulate.WithRegisterer(reg))

		if cfg.Observability.ServesMetrics() {
			shutdown, _, err := serveMetrics(cfg.Observability.MetricsAddr, reg, log)
			if err != nil {
				return err
			}
			defer shutdown()
		}
	}

	sim, err := simulate.New(cfg, opts...)
	if err != nil {
		return err
	}

	report, err := sim.Run(ctx)
	if report != nil {
		if werr := writeJSON(cmd.OutOrStdout(), report); werr != nil {
			return werr
		}
	}
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	return nil
}

// serveMetrics exposes reg on addr/metrics until the returned func is called.
// It also returns the address actually bound.
func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) (func(), string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, ln.Addr().String(), nil
}
