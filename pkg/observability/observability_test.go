package observability

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/handlepool/pkg/pool"
)

type handle struct{ id int }

func initForTest(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Writer = &buf
	cfg.SamplingRate = 1.0
	cfg.BatchTimeout = 10 * time.Millisecond
	require.NoError(t, Initialize(cfg))
	t.Cleanup(func() { _ = Shutdown(context.Background()) })
	return &buf
}

func TestTraceAcquireAndRelease(t *testing.T) {
	buf := initForTest(t)

	p, err := pool.New(pool.Lifecycle[*handle]{
		Create: func() (*handle, error) { return &handle{}, nil },
	}, pool.WithBounds(0, 1))
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	h, err := TraceAcquire(ctx, p)
	require.NoError(t, err)
	_, err = TraceAcquire(ctx, p)
	assert.True(t, pool.IsUnavailable(err))
	require.NoError(t, TraceRelease(ctx, p, h))

	require.NoError(t, Shutdown(ctx))
	out := buf.String()
	assert.Contains(t, out, "pool.acquire")
	assert.Contains(t, out, "pool.release")
	assert.Contains(t, out, "unavailable")
}

func TestShutdownWithoutInitialize(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background()))
	assert.NotNil(t, Tracer())
	assert.NotNil(t, Meter())
}

func TestLoggerWithTrace(t *testing.T) {
	initForTest(t)
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	// no span: logger unchanged
	LoggerWithTrace(context.Background(), logger).Info("plain")

	ctx, span := NewSpan(context.Background(), "op")
	LoggerWithTrace(ctx, logger).Info("traced")
	span.End()

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0].ContextMap(), "trace_id")
	assert.Contains(t, entries[1].ContextMap(), "trace_id")
	assert.Contains(t, entries[1].ContextMap(), "span_id")
}

func TestSpanAttributes(t *testing.T) {
	initForTest(t)
	_, span := NewSpan(context.Background(), "attrs")
	span.SetAttribute("s", "v")
	span.SetAttribute("i", 1)
	span.SetAttribute("i64", int64(2))
	span.SetAttribute("f", 1.5)
	span.SetAttribute("b", true)
	span.SetAttribute("d", time.Second)
	span.RecordError(nil)
	span.End()

	assert.Len(t, span.attributes, 6)
}
