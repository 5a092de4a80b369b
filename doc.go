// Package handlepool provides a bounded, rate-limited pool of reusable
// handles (sessions, connections, workers) with an injected reuse predicate
// and an injected time source.
//
// # Architecture
//
// The pool keeps every handle it owns in exactly one of two sets:
//   - free: idle handles, handed out most recently released first
//   - in use: handles checked out by callers
//
// The total population always stays within [minimum, maximum]. An optional
// delay spaces acquisitions; an attempt inside the delay window is refused
// without side effects.
//
// # Quick Start
//
//	import "github.com/ajitpratap0/handlepool/pkg/pool"
//
//	p, err := pool.New(pool.Lifecycle[*Session]{
//	    Create:   dialSession,
//	    Reusable: func(s *Session) bool { return s.Healthy() },
//	    Dispose:  func(s *Session) error { return s.Close() },
//	}, pool.WithBounds(2, 16), pool.WithDelay(10*time.Millisecond))
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	s, err := p.Acquire()
//	if pool.IsUnavailable(err) {
//	    // exhausted or rate limited, try later
//	}
//	defer p.Release(s)
//
// # Key Packages
//
//	pkg/pool          - The pool itself
//	pkg/errors        - Structured error handling
//	pkg/logger        - Structured logging
//	pkg/config        - Pool and simulation configuration
//	pkg/metrics       - Prometheus collector for pools
//	pkg/observability - OpenTelemetry tracing of pool operations
//	internal/simulate - Concurrent load simulator
//	cmd/handlepool    - Command line tool
//
// # Command Line
//
//	handlepool validate --config pool.yaml
//	handlepool simulate --max 4 --delay 5ms --workers 16 --metrics-addr :9090
//
// Environment variables are supported with ${VAR_NAME} syntax in YAML files
// and as HANDLEPOOL_* overrides on the command line.
package handlepool
