package main

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/handlepool/internal/simulate"
	"github.com/ajitpratap0/handlepool/pkg/metrics"
	"github.com/ajitpratap0/handlepool/pkg/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "handlepool v"+version)
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, `
name: sessions
pool:
  min: 1
  max: 4
  delay: 20ms
`)
	out, err := execute(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, `"name": "sessions"`)
}

func TestValidateCommandRejectsBadBounds(t *testing.T) {
	path := writeConfig(t, `
name: sessions
pool:
  min: 10
  max: 1
`)
	_, err := execute(t, "validate", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_bounds")
}

func TestValidateCommandRequiresConfig(t *testing.T) {
	_, err := execute(t, "validate")
	assert.Error(t, err)
}

func TestResolveConfigPrecedence(t *testing.T) {
	path := writeConfig(t, `
name: from-file
pool:
  min: 1
  max: 4
simulation:
  workers: 2
`)
	t.Setenv("HANDLEPOOL_POOL_MAX", "6")
	t.Setenv("HANDLEPOOL_SIMULATION_WORKERS", "3")

	cmd := newSimulateCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--workers", "5", "--delay", "15ms"}))

	cfg, err := resolveConfig(cmd, path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Name)
	assert.Equal(t, 1, cfg.Pool.Min, "file value kept")
	assert.Equal(t, 6, cfg.Pool.Max, "env overrides file")
	assert.Equal(t, 5, cfg.Simulation.Workers, "flag overrides env")
	assert.Equal(t, 15*time.Millisecond, cfg.Pool.Delay)
}

func TestResolveConfigValidateOnAcquireFlag(t *testing.T) {
	cmd := newSimulateCmd()
	cfg, err := resolveConfig(cmd, "")
	require.NoError(t, err)
	assert.False(t, cfg.Pool.ValidateOnAcquire)

	cmd = newSimulateCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--validate-on-acquire"}))
	cfg, err = resolveConfig(cmd, "")
	require.NoError(t, err)
	assert.True(t, cfg.Pool.ValidateOnAcquire)
}

func TestSimulateCommandValidateOnAcquire(t *testing.T) {
	out, err := execute(t, "simulate",
		"--max", "2",
		"--workers", "2",
		"--duration", "30ms",
		"--hold-time", "1ms",
		"--retry-backoff", "1ms",
		"--dead-ratio", "0.5",
		"--validate-on-acquire",
		"--log-level", "error")
	require.NoError(t, err)

	var report simulate.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Positive(t, report.Acquired)
	assert.LessOrEqual(t, report.Pool.Total, 2)
}

func TestResolveConfigValidates(t *testing.T) {
	cmd := newSimulateCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--min", "3", "--max", "2"}))

	_, err := resolveConfig(cmd, "")
	assert.Error(t, err)
}

func TestSimulateCommand(t *testing.T) {
	out, err := execute(t, "simulate",
		"--max", "2",
		"--workers", "3",
		"--duration", "50ms",
		"--hold-time", "1ms",
		"--retry-backoff", "1ms",
		"--log-level", "error")
	require.NoError(t, err)

	var report simulate.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Positive(t, report.Acquired)
	assert.LessOrEqual(t, report.Pool.Total, 2)
	assert.Zero(t, report.Pool.InUse)
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewPoolCollector(reg, "served").ObserveCounts(3, 1, 2)

	shutdown, addr, err := serveMetrics("127.0.0.1:0", reg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer shutdown()

	var body string
	testutil.AssertEventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, "metrics endpoint did not come up")

	assert.Contains(t, body, `handlepool_handles{pool="served",state="total"} 3`)
}
