package upi

import (
	"context"
)

// Caller issues UPI calls.
//
// Call blocks until the function completes, fails or the context is
// canceled.
type Caller interface {
	Call(ctx context.Context, name string, args ...any) (any, error)
}

// Call represents an active non-blocking UPI call.
type Call struct {
	// Name is the UPI function name.
	Name string
	// Args are the call arguments.
	Args []any
	// Result is the call result, valid after Done is closed.
	Result any
	// Err is the call error, valid after Done is closed.
	Err error

	done chan struct{}
}

// Done returns a channel that is closed once the call completes.
func (m *Call) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the call completes or the context is canceled.
func (m *Call) Wait(ctx context.Context) (any, error) {
	select {
	case <-m.done:
		return m.Result, m.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Go issues a non-blocking UPI call through the given caller.
//
// The callback, if any, is invoked from the call goroutine once the call
// completes, before Done is closed.
func Go(ctx context.Context, caller Caller, callback func(*Call), name string, args ...any) *Call {
	call := &Call{
		Name: name,
		Args: args,
		done: make(chan struct{}),
	}

	go func() {
		defer close(call.done)

		call.Result, call.Err = caller.Call(ctx, name, args...)
		if callback != nil {
			callback(call)
		}
	}()

	return call
}
