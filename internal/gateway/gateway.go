package gateway

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/siderolabs/grpc-proxy/proxy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wishful-project/agent/internal/upi"
	"github.com/wishful-project/agent/internal/xgrpc"
)

type gatewayOptions struct {
	Log      *zap.SugaredLogger
	LogLevel *zap.AtomicLevel
}

func newGatewayOptions() *gatewayOptions {
	return &gatewayOptions{
		Log: zap.NewNop().Sugar(),
	}
}

// GatewayOption is a function that configures the Gateway.
type GatewayOption func(*gatewayOptions)

// WithLog sets the logger for the Gateway.
func WithLog(log *zap.SugaredLogger) GatewayOption {
	return func(o *gatewayOptions) {
		o.Log = log
	}
}

// WithAtomicLogLevel sets the atomic logger level for the Gateway.
//
// This level can be changed at runtime.
func WithAtomicLogLevel(level *zap.AtomicLevel) GatewayOption {
	return func(o *gatewayOptions) {
		o.LogLevel = level
	}
}

// Gateway is the single gRPC entry point to UPI modules of an agent.
//
// Every UPI module is served by its own gRPC server and registers itself
// here. Calls to `upi.<module>` services are proxied to the registered
// backend as is, so remote controllers need to know only one endpoint.
type Gateway struct {
	cfg      *Config
	server   *grpc.Server
	registry *BackendRegistry
	log      *zap.SugaredLogger

	mu       sync.Mutex
	listener net.Listener
}

// NewGateway creates a new Gateway.
func NewGateway(cfg *Config, options ...GatewayOption) *Gateway {
	opts := newGatewayOptions()
	for _, o := range options {
		o(opts)
	}
	log := opts.Log
	registry := NewBackendRegistry()

	director := func(ctx context.Context, fullMethodName string) (proxy.Mode, []proxy.Backend, error) {
		service, _, err := upi.SplitFullMethod(fullMethodName)
		if err != nil {
			return proxy.One2One, nil, status.Errorf(codes.InvalidArgument, "malformed gRPC method name: %v", err)
		}

		backend, ok := registry.Proxy(service)
		if !ok {
			return proxy.One2One, nil, status.Errorf(codes.Unimplemented, "unknown service %q", service)
		}

		log.Debugf("proxying request %q to %q", fullMethodName, service)

		return proxy.One2One, []proxy.Backend{backend}, nil
	}

	maxMessageSize := int(cfg.Server.MaxMessageSize.Bytes())

	serverOptions := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(xgrpc.AccessLogInterceptor(log)),
		grpc.ForceServerCodecV2(proxy.Codec()),
		grpc.UnknownServiceHandler(
			proxy.TransparentHandler(director),
		),
	}
	if maxMessageSize > 0 {
		serverOptions = append(serverOptions,
			grpc.MaxRecvMsgSize(maxMessageSize),
			grpc.MaxSendMsgSize(maxMessageSize),
		)
	}
	server := grpc.NewServer(serverOptions...)

	gatewayService := NewGatewayService(registry, maxMessageSize, log)
	loggingService := NewLoggingService(opts.LogLevel, log)

	server.RegisterService(&gatewayServiceDesc, gatewayService)
	log.Infow("registered service", zap.String("service", fmt.Sprintf("%T", gatewayService)))

	server.RegisterService(&loggingServiceDesc, loggingService)
	log.Infow("registered service", zap.String("service", fmt.Sprintf("%T", loggingService)))

	return &Gateway{
		cfg:      cfg,
		server:   server,
		registry: registry,
		log:      log,
	}
}

// Registry returns the backend registry of this gateway.
func (m *Gateway) Registry() *BackendRegistry {
	return m.registry
}

// Listen binds the gateway endpoint without serving it yet.
//
// This allows to learn the actual address when the configured endpoint uses
// an ephemeral port.
func (m *Gateway) Listen() (net.Addr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listener != nil {
		return m.listener.Addr(), nil
	}

	listener, err := net.Listen("tcp", m.cfg.Server.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gRPC listener: %w", err)
	}
	m.listener = listener

	return listener.Addr(), nil
}

// Run runs the gateway until the specified context is canceled.
func (m *Gateway) Run(ctx context.Context) error {
	m.log.Infof("starting gRPC gateway")

	if _, err := m.Listen(); err != nil {
		return err
	}
	listener := m.listener

	m.log.Infow("exposing gRPC gateway", zap.Stringer("addr", listener.Addr()))

	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return m.server.Serve(listener)
	})

	<-ctx.Done()

	m.log.Infow("stopping gRPC gateway", zap.Stringer("addr", listener.Addr()))
	defer m.log.Infow("stopped gRPC gateway", zap.Stringer("addr", listener.Addr()))

	m.server.GracefulStop()

	if err := wg.Wait(); err != nil {
		return err
	}
	return m.registry.Close()
}

// Close stops the gateway immediately, closing the listener if it was never
// served.
func (m *Gateway) Close() error {
	m.server.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listener != nil {
		// The listener is already closed if it was served.
		_ = m.listener.Close()
	}
	return m.registry.Close()
}
