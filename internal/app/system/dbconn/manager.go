package dbconn

import (
	"context"
	"sync"
)

// manager implements the connection lifecycle shared by the Redis and Mongo
// managers. open performs one attempt; release tears down an open handle.
type manager[T any] struct {
	open    func(ctx context.Context) (T, error)
	release func(T) error

	mu      sync.Mutex
	state   State
	pending *Pending[T]
	handle  T
}

func (m *manager[T]) connect(ctx context.Context) *Pending[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateConnecting, StateReady:
		return m.pending
	case StateClosed:
		p := newPending[T]()
		var zero T
		p.resolve(zero, ErrClosed)
		return p
	}

	p := newPending[T]()
	m.pending = p
	m.state = StateConnecting
	go m.run(ctx, p)
	return p
}

func (m *manager[T]) run(ctx context.Context, p *Pending[T]) {
	h, err := m.open(ctx)

	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		if err == nil {
			_ = m.release(h)
		}
		var zero T
		p.resolve(zero, ErrClosed)
		return
	}
	if err != nil {
		m.state = StateFailed
	} else {
		m.state = StateReady
		m.handle = h
	}
	m.mu.Unlock()

	p.resolve(h, err)
}

func (m *manager[T]) current() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady {
		var zero T
		return zero, false
	}
	return m.handle, true
}

func (m *manager[T]) lifecycle() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *manager[T]) close() error {
	m.mu.Lock()
	prev := m.state
	h := m.handle
	var zero T
	m.handle = zero
	m.state = StateClosed
	m.mu.Unlock()

	if prev == StateReady {
		return m.release(h)
	}
	return nil
}
