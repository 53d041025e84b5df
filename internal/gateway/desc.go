package gateway

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/wishful-project/agent/internal/upi"
)

const (
	// GatewayServiceName is the name of the gateway control service.
	GatewayServiceName = "agentpb.Gateway"
	// LoggingServiceName is the name of the runtime logging service.
	LoggingServiceName = "agentpb.Logging"
)

// Invoker executes UPI functions by their full name.
type Invoker interface {
	Invoke(ctx context.Context, name string, args *structpb.ListValue) (*structpb.Value, error)
}

// NewModuleServiceDesc describes the gRPC service that exposes functions of a
// single UPI module.
//
// Each function becomes a unary method taking a list of arguments and
// returning a single value, e.g. `/upi.net/get_iface_hw_addr`.
func NewModuleServiceDesc(module string, functions []string) *grpc.ServiceDesc {
	serviceName := upi.ServiceName(module)

	methods := make([]grpc.MethodDesc, 0, len(functions))
	for _, function := range functions {
		name := module + "." + function
		fullMethod := "/" + serviceName + "/" + function

		methods = append(methods, grpc.MethodDesc{
			MethodName: function,
			Handler: func(
				srv any,
				ctx context.Context,
				dec func(any) error,
				interceptor grpc.UnaryServerInterceptor,
			) (any, error) {
				in := new(structpb.ListValue)
				if err := dec(in); err != nil {
					return nil, err
				}

				handler := func(ctx context.Context, req any) (any, error) {
					out, err := srv.(Invoker).Invoke(ctx, name, req.(*structpb.ListValue))
					if err != nil {
						return nil, upi.Status(err)
					}
					return out, nil
				}
				if interceptor == nil {
					return handler(ctx, in)
				}

				info := &grpc.UnaryServerInfo{
					Server:     srv,
					FullMethod: fullMethod,
				}
				return interceptor(ctx, in, info, handler)
			},
		})
	}

	return &grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*Invoker)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    "upi/" + module,
	}
}

// structHandler adapts a method taking a free-form struct into a
// grpc.MethodHandler.
func structHandler(
	fullMethod string,
	call func(srv any, ctx context.Context, req *structpb.Struct) (any, error),
) grpc.MethodHandler {
	return func(
		srv any,
		ctx context.Context,
		dec func(any) error,
		interceptor grpc.UnaryServerInterceptor,
	) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(*structpb.Struct))
		}
		if interceptor == nil {
			return handler(ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		return interceptor(ctx, in, info, handler)
	}
}

type gatewayServer interface {
	Register(ctx context.Context, req *structpb.Struct) (any, error)
	ListServices(ctx context.Context, req *structpb.Struct) (any, error)
}

var gatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: GatewayServiceName,
	HandlerType: (*gatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Register",
			Handler: structHandler(
				"/"+GatewayServiceName+"/Register",
				func(srv any, ctx context.Context, req *structpb.Struct) (any, error) {
					return srv.(gatewayServer).Register(ctx, req)
				},
			),
		},
		{
			MethodName: "ListServices",
			Handler: structHandler(
				"/"+GatewayServiceName+"/ListServices",
				func(srv any, ctx context.Context, req *structpb.Struct) (any, error) {
					return srv.(gatewayServer).ListServices(ctx, req)
				},
			),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agentpb/gateway",
}

type loggingServer interface {
	GetLevel(ctx context.Context, req *structpb.Struct) (any, error)
	UpdateLevel(ctx context.Context, req *structpb.Struct) (any, error)
}

var loggingServiceDesc = grpc.ServiceDesc{
	ServiceName: LoggingServiceName,
	HandlerType: (*loggingServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetLevel",
			Handler: structHandler(
				"/"+LoggingServiceName+"/GetLevel",
				func(srv any, ctx context.Context, req *structpb.Struct) (any, error) {
					return srv.(loggingServer).GetLevel(ctx, req)
				},
			),
		},
		{
			MethodName: "UpdateLevel",
			Handler: structHandler(
				"/"+LoggingServiceName+"/UpdateLevel",
				func(srv any, ctx context.Context, req *structpb.Struct) (any, error) {
					return srv.(loggingServer).UpdateLevel(ctx, req)
				},
			),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agentpb/logging",
}
