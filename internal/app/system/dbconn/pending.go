package dbconn

import (
	"context"
	"sync"
)

// Pending is the eventual outcome of one connection attempt. It resolves
// exactly once.
type Pending[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

// resolve records the outcome. Only the first call has any effect.
func (p *Pending[T]) resolve(v T, err error) bool {
	first := false
	p.once.Do(func() {
		p.value = v
		p.err = err
		close(p.done)
		first = true
	})
	return first
}

// Done is closed once the attempt has finished.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the attempt finishes or ctx is done. Cancelling ctx only
// stops the wait; the attempt itself is bounded by the context given to Connect.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking. finished is false while the
// attempt is still running.
func (p *Pending[T]) Result() (value T, finished bool, err error) {
	select {
	case <-p.done:
		return p.value, true, p.err
	default:
		var zero T
		return zero, false, nil
	}
}

// Then calls fn exactly once with the outcome, from its own goroutine.
func (p *Pending[T]) Then(fn func(T, error)) {
	go func() {
		<-p.done
		fn(p.value, p.err)
	}()
}
