// Package testutil provides testing utilities for handlepool
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// ErrFactoryDown is returned by HandleFactory while failures are enabled
var ErrFactoryDown = errors.New("factory down")

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ testing.TB) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t testing.TB, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// Handle is a fake pooled resource
type Handle struct {
	ID   int
	Dead bool
}

func (h *Handle) String() string {
	return fmt.Sprintf("handle-%d", h.ID)
}

// HandleFactory builds and disposes Handles and records what it did.
// It is safe for concurrent use.
type HandleFactory struct {
	mu         sync.Mutex
	next       int
	fail       bool
	failAfter  int
	disposeErr error
	disposed   []*Handle
}

// NewHandleFactory returns a factory whose first handle has ID 1
func NewHandleFactory() *HandleFactory {
	return &HandleFactory{failAfter: -1}
}

// Create builds a new Handle, or fails with ErrFactoryDown
func (f *HandleFactory) Create() (*Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail || f.failAfter == 0 {
		return nil, ErrFactoryDown
	}
	if f.failAfter > 0 {
		f.failAfter--
	}
	f.next++
	return &Handle{ID: f.next}, nil
}

// Dispose records h as destroyed
func (f *HandleFactory) Dispose(h *Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.disposed = append(f.disposed, h)
	return f.disposeErr
}

// Alive reports whether h has not been marked dead
func (f *HandleFactory) Alive(h *Handle) bool {
	return !h.Dead
}

// SetFailing makes every subsequent Create fail, or stops failing
func (f *HandleFactory) SetFailing(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.failAfter = -1
	f.mu.Unlock()
}

// FailAfter lets n more Create calls succeed and fails the rest
func (f *HandleFactory) FailAfter(n int) {
	f.mu.Lock()
	f.failAfter = n
	f.mu.Unlock()
}

// SetDisposeError makes Dispose return err
func (f *HandleFactory) SetDisposeError(err error) {
	f.mu.Lock()
	f.disposeErr = err
	f.mu.Unlock()
}

// Created returns the number of handles built so far
func (f *HandleFactory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next
}

// Disposed returns the handles destroyed so far, in order
func (f *HandleFactory) Disposed() []*Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Handle, len(f.disposed))
	copy(out, f.disposed)
	return out
}
