package cache

import (
	"context"
	"sync"
)

type flight[V any] struct {
	done    chan struct{}
	value   V
	err     error
	waiters int
	cancel  context.CancelFunc
}

// FlightGroup collapses concurrent fetches for the same key into a single
// in-flight call whose outcome is shared by every waiter. The shared fetch
// runs on its own context, detached from any one caller's deadline, and is
// canceled only when the last waiter has given up on it.
type FlightGroup[V any] struct {
	mu      sync.Mutex
	flights map[string]*flight[V]
}

func NewFlightGroup[V any]() *FlightGroup[V] {
	return &FlightGroup[V]{
		flights: make(map[string]*flight[V]),
	}
}

// Join returns the outcome of the in-flight fetch for key, starting one if
// none is running. The returned bool reports whether the call attached to a
// fetch started by another caller. When ctx ends before the fetch completes,
// Join returns ctx's error while the fetch keeps running for the remaining
// waiters.
func (g *FlightGroup[V]) Join(ctx context.Context, key string, fetch func(ctx context.Context) (V, error)) (V, bool, error) {
	if err := ctx.Err(); err != nil {
		var empty V
		return empty, false, err
	}

	g.mu.Lock()
	f, shared := g.flights[key]
	if !shared {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight[V]{
			done:   make(chan struct{}),
			cancel: cancel,
		}
		g.flights[key] = f
		go g.drive(fctx, key, f, fetch)
	}
	f.waiters++
	g.mu.Unlock()

	select {
	case <-f.done:
		return f.value, shared, f.err
	case <-ctx.Done():
		g.mu.Lock()
		f.waiters--
		abandoned := f.waiters == 0
		g.mu.Unlock()
		if abandoned {
			f.cancel()
		}
		var empty V
		return empty, shared, ctx.Err()
	}
}

func (g *FlightGroup[V]) drive(ctx context.Context, key string, f *flight[V], fetch func(ctx context.Context) (V, error)) {
	value, err := fetch(ctx)

	g.mu.Lock()
	f.value = value
	f.err = err
	delete(g.flights, key)
	g.mu.Unlock()

	// Results are published before done is closed, so waiters may read them
	// without holding the lock.
	close(f.done)
	f.cancel()
}
