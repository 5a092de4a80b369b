package pool_test

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ajitpratap0/handlepool/pkg/pool"
)

type session struct {
	id     int
	broken bool
}

// Example shows the acquire and release cycle of a small bounded pool.
func Example() {
	next := 0
	p, err := pool.New(pool.Lifecycle[*session]{
		Create: func() (*session, error) {
			next++
			return &session{id: next}, nil
		},
		Reusable: func(s *session) bool { return !s.broken },
	}, pool.WithBounds(1, 2))
	if err != nil {
		panic(err)
	}
	defer p.Close()

	a, _ := p.Acquire()
	b, _ := p.Acquire()
	_, err = p.Acquire()
	fmt.Println("third acquire unavailable:", pool.IsUnavailable(err))

	b.broken = true
	_ = p.Release(a)
	_ = p.Release(b)
	fmt.Printf("total=%d free=%d in_use=%d\n", p.Total(), p.FreeCount(), p.InUseCount())

	// Output:
	// third acquire unavailable: true
	// total=1 free=1 in_use=0
}

// ExamplePool_SetDelay shows the rate gate driven by a mock clock.
func ExamplePool_SetDelay() {
	mock := clock.NewMock()
	p, _ := pool.New(pool.Lifecycle[*session]{
		Create: func() (*session, error) { return &session{}, nil },
	}, pool.WithClock(mock))
	defer p.Close()

	p.SetDelay(100 * time.Millisecond)

	_, err := p.Acquire()
	fmt.Println("first:", err == nil)
	_, err = p.Acquire()
	fmt.Println("immediately after:", pool.IsRateLimited(err))

	mock.Add(100 * time.Millisecond)
	_, err = p.Acquire()
	fmt.Println("after delay:", err == nil)

	// Output:
	// first: true
	// immediately after: true
	// after delay: true
}
