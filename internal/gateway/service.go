package gateway

import (
	"context"
	"net"
	"strings"

	"github.com/siderolabs/grpc-proxy/proxy"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/wishful-project/agent/internal/upi"
)

// GatewayService is the gRPC service that manages UPI module backends.
type GatewayService struct {
	registry       *BackendRegistry
	maxMessageSize int
	log            *zap.SugaredLogger
}

// NewGatewayService creates a new GatewayService.
func NewGatewayService(registry *BackendRegistry, maxMessageSize int, log *zap.SugaredLogger) *GatewayService {
	return &GatewayService{
		registry:       registry,
		maxMessageSize: maxMessageSize,
		log:            log,
	}
}

// Register registers a new UPI module backend in the gateway.
//
// The request carries the gRPC service "name" and the backend "endpoint",
// which is either a TCP address or an absolute path to a unix socket.
func (m *GatewayService) Register(ctx context.Context, req *structpb.Struct) (any, error) {
	name := req.GetFields()["name"].GetStringValue()
	endpoint := req.GetFields()["endpoint"].GetStringValue()
	if name == "" || endpoint == "" {
		return nil, status.Error(codes.InvalidArgument, "both name and endpoint are required")
	}
	if !strings.HasPrefix(name, upi.ServicePrefix) || name == upi.ServicePrefix {
		return nil, status.Errorf(codes.InvalidArgument, "service %q is not a UPI module, expected %q prefix", name, upi.ServicePrefix)
	}

	m.log.Infof("registering backend %q on %q", name, endpoint)

	callOptions := []grpc.CallOption{grpc.ForceCodecV2(proxy.Codec())}
	if m.maxMessageSize > 0 {
		callOptions = append(callOptions,
			grpc.MaxCallRecvMsgSize(m.maxMessageSize),
			grpc.MaxCallSendMsgSize(m.maxMessageSize),
		)
	}

	conn, err := grpc.NewClient(
		"passthrough:target",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			dialer := net.Dialer{}
			if strings.HasPrefix(endpoint, "/") {
				return dialer.DialContext(ctx, "unix", endpoint)
			}

			return dialer.DialContext(ctx, "tcp", endpoint)
		}),
		grpc.WithDefaultCallOptions(callOptions...),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to create gRPC client to backend: %v", err)
	}

	backend := &proxy.SingleBackend{
		GetConn: func(ctx context.Context) (context.Context, *grpc.ClientConn, error) {
			md, _ := metadata.FromIncomingContext(ctx)
			outCtx := metadata.NewOutgoingContext(ctx, md.Copy())

			return outCtx, conn, nil
		},
	}
	if prev := m.registry.Register(name, endpoint, conn, backend); prev != nil {
		m.log.Infof("replaced backend %q, closing previous connection", name)
		_ = prev.Close()
	}

	return &emptypb.Empty{}, nil
}

// ListServices returns names of all services reachable through the gateway.
func (m *GatewayService) ListServices(ctx context.Context, req *structpb.Struct) (any, error) {
	services := append([]string{GatewayServiceName, LoggingServiceName}, m.registry.Services()...)

	values := make([]any, 0, len(services))
	for _, service := range services {
		values = append(values, service)
	}

	return structpb.NewList(values)
}
