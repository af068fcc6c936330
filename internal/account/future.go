package account

import (
	"context"
	"sync"
)

// Future is a result that becomes available later, typically from a
// goroutine driving a user interaction.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

// NewFuture creates an unresolved Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a Future that is already complete.
func Resolved[T any](val T, err error) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(val, err)
	return f
}

// Async runs fn on a new goroutine and resolves the Future with its result.
func Async[T any](fn func() (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		f.Resolve(fn())
	}()
	return f
}

// Resolve completes the Future. Only the first call has an effect.
func (f *Future[T]) Resolve(val T, err error) {
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
	})
}

// Done is closed once the Future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the Future resolves or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
