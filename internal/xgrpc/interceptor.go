package xgrpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/wishful-project/agent/internal/upi"
)

// LogValuer is implemented by requests that provide their own log
// representation, for example to hide large payloads.
type LogValuer interface {
	AsLogValue() any
}

// AccessLogInterceptor returns a gRPC unary server interceptor that writes an
// access log entry per call.
//
// Requests are logged at debug level before the call. Completed calls are
// logged at info level, calls failed because of the caller (unknown
// interface, bad arguments, cancellation) at warn level and all other
// failures at error level.
func AccessLogInterceptor(log *zap.SugaredLogger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		fields := methodFields(info.FullMethod)

		if log.Level().Enabled(zap.DebugLevel) {
			log.Debugw("started UPI call", append(fields, zap.Any("request", requestLogValue(req)))...)
		}

		now := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		fields = append(fields,
			zap.Stringer("status", code),
			zap.Duration("duration", time.Since(now)),
		)
		switch {
		case err == nil:
			log.Infow("completed UPI call", fields...)
		case callerFault(code):
			log.Warnw("rejected UPI call", append(fields, zap.Error(err))...)
		default:
			log.Errorw("failed to execute UPI call", append(fields, zap.Error(err))...)
		}

		return resp, err
	}
}

func methodFields(fullMethod string) []any {
	service, method, err := upi.SplitFullMethod(fullMethod)
	if err != nil {
		return []any{zap.String("method", fullMethod)}
	}
	return []any{zap.String("service", service), zap.String("function", method)}
}

func callerFault(code codes.Code) bool {
	switch code {
	case codes.NotFound, codes.InvalidArgument, codes.Canceled, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}

func requestLogValue(req any) any {
	switch m := req.(type) {
	case LogValuer:
		return m.AsLogValue()
	case zapcore.ObjectMarshaler:
		return m
	case *structpb.ListValue:
		return m.AsSlice()
	case *structpb.Struct:
		return m.AsMap()
	case proto.Message:
		buf, err := protojson.Marshal(m)
		if err != nil {
			return "<unprintable>"
		}
		return string(buf)
	default:
		return nil
	}
}
