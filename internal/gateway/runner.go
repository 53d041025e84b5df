package gateway

import (
	"context"
	"fmt"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/wishful-project/agent/internal/upi"
	"github.com/wishful-project/agent/internal/xgrpc"
)

// DefaultRegisterTimeout bounds the time a module runner keeps retrying to
// register itself in the gateway.
const DefaultRegisterTimeout = 30 * time.Second

// ModuleRunner serves UPI functions of a single module over gRPC and
// registers them in the gateway.
type ModuleRunner struct {
	module          string
	functions       []string
	invoker         Invoker
	endpoint        string
	gatewayEndpoint string
	registerTimeout time.Duration
	server          *grpc.Server
	ready           chan struct{}
	log             *zap.SugaredLogger
}

// NewModuleRunner creates a runner that exposes the given functions of the
// module on endpoint and registers them at gatewayEndpoint.
func NewModuleRunner(
	module string,
	functions []string,
	invoker Invoker,
	endpoint string,
	gatewayEndpoint string,
	log *zap.SugaredLogger,
) *ModuleRunner {
	log = log.Named(module).With(zap.String("module", module))

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(xgrpc.AccessLogInterceptor(log)),
	)
	server.RegisterService(NewModuleServiceDesc(module, functions), invoker)

	return &ModuleRunner{
		module:          module,
		functions:       functions,
		invoker:         invoker,
		endpoint:        endpoint,
		gatewayEndpoint: gatewayEndpoint,
		registerTimeout: DefaultRegisterTimeout,
		server:          server,
		ready:           make(chan struct{}),
		log:             log,
	}
}

// Ready returns a channel that is closed once the module is registered in
// the gateway.
func (m *ModuleRunner) Ready() <-chan struct{} {
	return m.ready
}

// Run runs the module gRPC API until the specified context is canceled.
func (m *ModuleRunner) Run(ctx context.Context) error {
	listener, err := m.listen()
	if err != nil {
		return fmt.Errorf("failed to initialize gRPC listener: %w", err)
	}

	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		m.log.Infow("exposing gRPC API", zap.Stringer("addr", listener.Addr()))
		return m.server.Serve(listener)
	})

	if err = m.register(ctx, listener.Addr()); err != nil {
		m.server.Stop()
		_ = wg.Wait()
		return fmt.Errorf("failed to register %q: %w", upi.ServiceName(m.module), err)
	}
	close(m.ready)

	<-ctx.Done()

	m.log.Infow("stopping gRPC API", zap.Stringer("addr", listener.Addr()))
	defer m.log.Infow("stopped gRPC API", zap.Stringer("addr", listener.Addr()))

	m.server.GracefulStop()

	return wg.Wait()
}

func (m *ModuleRunner) listen() (net.Listener, error) {
	endpoint := m.endpoint

	if strings.HasPrefix(endpoint, "/") {
		dir := path.Dir(endpoint)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		if err := os.Remove(endpoint); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}

		return net.Listen("unix", endpoint)
	}

	return net.Listen("tcp", endpoint)
}

func (m *ModuleRunner) register(ctx context.Context, addr net.Addr) error {
	gatewayConn, err := grpc.NewClient(
		m.gatewayEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize gateway gRPC client: %w", err)
	}
	defer gatewayConn.Close()

	client := NewClient(gatewayConn)
	serviceName := upi.ServiceName(m.module)

	_, err = backoff.Retry(ctx,
		func() (struct{}, error) {
			return struct{}{}, client.Register(ctx, serviceName, addr.String())
		},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(m.registerTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			m.log.Warnf("failed to register %q in the gateway, retrying in %s: %v", serviceName, next, err)
		}),
	)
	if err != nil {
		return err
	}

	m.log.Infof("successfully registered %q in the gateway", serviceName)
	return nil
}
