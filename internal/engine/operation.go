package engine

import (
	"context"
	"sync"
)

// Operation is the completion signal for one issued load or unload request.
// Done is closed exactly once; Err is valid after Done is closed.
type Operation interface {
	Done() <-chan struct{}
	Err() error
}

// Completion is a settable Operation handed out by primitive implementations.
type Completion struct {
	done chan struct{}
	once sync.Once
	err  error
}

// NewCompletion returns a pending operation.
func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Completed returns an operation that has already finished with err.
func Completed(err error) Operation {
	c := NewCompletion()
	c.Complete(err)
	return c
}

// Complete settles the operation. Later calls are ignored.
func (c *Completion) Complete(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

func (c *Completion) Done() <-chan struct{} {
	return c.done
}

func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Await suspends until op completes or ctx is done. A done ctx does not abort
// the request; it only stops the caller from waiting on it. An op that has
// already completed wins over a done ctx.
func Await(ctx context.Context, op Operation) error {
	select {
	case <-op.Done():
		return op.Err()
	default:
	}
	select {
	case <-op.Done():
		return op.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until op completes.
func Wait(op Operation) error {
	<-op.Done()
	return op.Err()
}
