package wizard

import (
	"context"
	"fmt"
	"sync"
)

// Future is the awaitable result of an asynchronous engine call.
type Future[T any] struct {
	mu     sync.RWMutex
	done   chan struct{}
	value  T
	err    error
	stored bool
}

// NewFuture returns a pending future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Go runs fn on a new goroutine and resolves the returned future with its
// result. A panic in fn resolves the future with an internal error.
func Go[T any](ctx context.Context, logger Logger, name string, fn func(context.Context) (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		defer MakePanicHandler(func(funcName string, err any, stack []byte, fields ...map[string]any) {
			logPanic(logger, funcName, err, stack, fields...)
			f.StoreError(fmt.Errorf("panic in %s: %v", funcName, err))
		})(name)
		value, err := fn(ctx)
		if err != nil {
			f.StoreError(err)
			return
		}
		f.Store(value)
	}()
	return f
}

// Store resolves the future with value. Only the first store wins.
func (f *Future[T]) Store(value T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored {
		return
	}
	f.value = value
	f.stored = true
	close(f.done)
}

// StoreError resolves the future with err. Only the first store wins.
func (f *Future[T]) StoreError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored {
		return
	}
	f.err = err
	f.stored = true
	close(f.done)
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Load returns the value without blocking; ok is false while pending.
func (f *Future[T]) Load() (T, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value, f.stored
}

// Await blocks until the future resolves or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.RLock()
		defer f.mu.RUnlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
