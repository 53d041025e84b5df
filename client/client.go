// Package client provides a UPI controller that talks to a remote agent
// through its gRPC gateway.
package client

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/wishful-project/agent/internal/gateway"
	"github.com/wishful-project/agent/internal/upi"
)

type options struct {
	Log         *zap.SugaredLogger
	CallTimeout time.Duration
	DialOptions []grpc.DialOption
}

func newOptions() *options {
	return &options{
		Log: zap.NewNop().Sugar(),
	}
}

// ClientOption is a function that configures the remote controller.
type ClientOption func(*options)

// WithLog sets the logger for the remote controller.
func WithLog(log *zap.SugaredLogger) ClientOption {
	return func(o *options) {
		o.Log = log
	}
}

// WithCallTimeout bounds every UPI call.
func WithCallTimeout(timeout time.Duration) ClientOption {
	return func(o *options) {
		o.CallTimeout = timeout
	}
}

// WithDialOptions appends extra gRPC dial options.
func WithDialOptions(opts ...grpc.DialOption) ClientOption {
	return func(o *options) {
		o.DialOptions = append(o.DialOptions, opts...)
	}
}

// RemoteController issues UPI calls to an agent gateway.
type RemoteController struct {
	conn    *grpc.ClientConn
	gateway *gateway.Client
	timeout time.Duration
	log     *zap.SugaredLogger
}

// Dial creates a controller for the agent gateway at the given endpoint.
//
// The connection is established lazily on the first call.
func Dial(endpoint string, options ...ClientOption) (*RemoteController, error) {
	opts := newOptions()
	for _, o := range options {
		o(opts)
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts.DialOptions...)

	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gRPC client for %q: %w", endpoint, err)
	}

	return &RemoteController{
		conn:    conn,
		gateway: gateway.NewClient(conn),
		timeout: opts.CallTimeout,
		log:     opts.Log.With(zap.String("endpoint", endpoint)),
	}, nil
}

// Call performs a blocking UPI call.
//
// Transport errors are mapped back to UPI errors, such as
// [upi.ErrNotFound].
func (m *RemoteController) Call(ctx context.Context, name string, args ...any) (any, error) {
	method, err := upi.FullMethod(name)
	if err != nil {
		return nil, err
	}

	req, err := upi.NewArgs(args...)
	if err != nil {
		return nil, err
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	resp := new(structpb.Value)
	if err := m.conn.Invoke(ctx, method, req, resp); err != nil {
		m.log.Debugw("UPI call failed", zap.String("upi", name), zap.Error(err))
		return nil, upi.FromStatus(err)
	}

	return upi.AsInterface(resp), nil
}

// Go performs a non-blocking UPI call.
func (m *RemoteController) Go(ctx context.Context, callback func(*upi.Call), name string, args ...any) *upi.Call {
	return upi.Go(ctx, m, callback, name, args...)
}

// ListServices returns names of all services reachable through the gateway.
func (m *RemoteController) ListServices(ctx context.Context) ([]string, error) {
	return m.gateway.ListServices(ctx)
}

// GetLevel returns the minimum logging level of the remote agent.
func (m *RemoteController) GetLevel(ctx context.Context) (string, error) {
	return m.gateway.GetLevel(ctx)
}

// UpdateLevel updates the minimum logging level of the remote agent.
func (m *RemoteController) UpdateLevel(ctx context.Context, level string) error {
	return m.gateway.UpdateLevel(ctx, level)
}

// Close closes the underlying connection.
func (m *RemoteController) Close() error {
	return m.conn.Close()
}
