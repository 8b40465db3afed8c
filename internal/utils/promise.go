package utils

import (
	"context"
	"sync"
)

// Promise is a single assignment value.
//
// The first call to Resolve stores the value and releases all waiters,
// later calls are refused. Zero Promise is not usable, use NewPromise.
type Promise[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
}

// NewPromise returns an unresolved Promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// Resolve assigns v to the Promise. It returns false if the Promise was already resolved,
// in which case the stored value is left unchanged.
func (self *Promise[T]) Resolve(v T) bool {
	resolved := false
	self.once.Do(func() {
		self.value = v
		close(self.done)
		resolved = true
	})
	return resolved
}

// Done returns a channel that is closed once the Promise is resolved.
func (self *Promise[T]) Done() <-chan struct{} {
	return self.done
}

// Value returns the resolved value and true, or the zero value and false if
// the Promise is still pending.
func (self *Promise[T]) Value() (T, bool) {
	select {
	case <-self.done:
		return self.value, true
	default:
		var zero T
		return zero, false
	}
}

// Wait blocks until the Promise is resolved or ctx is done.
func (self *Promise[T]) Wait(ctx context.Context) (T, error) {
	if v, ok := self.Value(); ok {
		return v, nil
	}
	select {
	case <-self.done:
		return self.value, nil
	case <-ctx.Done():
		var zero T
		return zero, context.Cause(ctx)
	}
}
