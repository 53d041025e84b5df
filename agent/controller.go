package agent

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/wishful-project/agent/internal/upi"
)

// Invoker invokes UPI functions using their wire representation.
type Invoker interface {
	Invoke(ctx context.Context, name string, args *structpb.ListValue) (*structpb.Value, error)
}

// Controller issues UPI calls to a local agent.
//
// Arguments and results go through the same codec as remote calls, so
// functions behave identically in both modes.
type Controller struct {
	invoker Invoker
	timeout time.Duration
}

// NewController creates a new controller.
//
// Zero timeout means calls are bounded by the caller context only.
func NewController(invoker Invoker, timeout time.Duration) *Controller {
	return &Controller{
		invoker: invoker,
		timeout: timeout,
	}
}

// Call performs a blocking UPI call.
//
// A nil result with nil error means the function returned no value.
func (m *Controller) Call(ctx context.Context, name string, args ...any) (any, error) {
	list, err := upi.NewArgs(args...)
	if err != nil {
		return nil, err
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	value, err := m.invoker.Invoke(ctx, name, list)
	if err != nil {
		return nil, err
	}
	return upi.AsInterface(value), nil
}

// Go performs a non-blocking UPI call.
//
// The callback, if not nil, is invoked once the call completes.
func (m *Controller) Go(ctx context.Context, callback func(*upi.Call), name string, args ...any) *upi.Call {
	return upi.Go(ctx, m, callback, name, args...)
}
