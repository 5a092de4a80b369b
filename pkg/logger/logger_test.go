package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestInitReplacesGlobal(t *testing.T) {
	require.NoError(t, Init(Config{Level: "debug", Encoding: "console", Development: true}))
	assert.True(t, Get().Core().Enabled(-1)) // debug

	require.NoError(t, Init(Config{Level: "warn"}))
	assert.False(t, Get().Core().Enabled(0)) // info
}

func TestWithContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), PoolKey, "sessions")
	ctx = context.WithValue(ctx, WorkerKey, 3)

	assert.NotNil(t, WithContext(ctx))
}
