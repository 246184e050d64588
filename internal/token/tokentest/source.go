// Package tokentest provides deterministic random sources for tests.
package tokentest

import (
	"context"
	"sync"
)

// CounterSource fills each read with a single byte value that increments per call,
// so consecutive secrets differ and are reproducible.
type CounterSource struct {
	mu   sync.Mutex
	next byte
}

func (c *CounterSource) Read(_ context.Context, n int) ([]byte, error) {
	c.mu.Lock()
	c.next++
	v := c.next
	c.mu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = v
	}
	return b, nil
}

// GateSource blocks every read until Release is called or ctx ends.
// Entered receives one value per read that has started waiting.
type GateSource struct {
	Entered chan struct{}
	gate    chan struct{}
	once    sync.Once
	inner   CounterSource
}

func NewGateSource() *GateSource {
	return &GateSource{Entered: make(chan struct{}, 16), gate: make(chan struct{})}
}

func (g *GateSource) Release() { g.once.Do(func() { close(g.gate) }) }

func (g *GateSource) Read(ctx context.Context, n int) ([]byte, error) {
	select {
	case g.Entered <- struct{}{}:
	default:
	}
	select {
	case <-g.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.inner.Read(ctx, n)
}

// FailingSource always returns Err.
type FailingSource struct{ Err error }

func (f FailingSource) Read(context.Context, int) ([]byte, error) { return nil, f.Err }
