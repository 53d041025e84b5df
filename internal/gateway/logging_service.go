package gateway

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// LoggingService is a service that exposes logging configuration at runtime.
type LoggingService struct {
	atom *zap.AtomicLevel
	log  *zap.SugaredLogger
}

// NewLoggingService creates a new LoggingService.
func NewLoggingService(atom *zap.AtomicLevel, log *zap.SugaredLogger) *LoggingService {
	return &LoggingService{
		atom: atom,
		log:  log,
	}
}

// GetLevel returns the current minimum logging level.
func (m *LoggingService) GetLevel(ctx context.Context, req *structpb.Struct) (any, error) {
	if m.atom == nil {
		return nil, status.Errorf(codes.Unimplemented, "service doesn't expose its log level")
	}

	return structpb.NewStruct(map[string]any{
		"level": m.atom.Level().String(),
	})
}

// UpdateLevel updates the minimum logging level.
func (m *LoggingService) UpdateLevel(ctx context.Context, req *structpb.Struct) (any, error) {
	if m.atom == nil {
		return nil, status.Errorf(codes.Unimplemented, "service doesn't support setting log level dynamically")
	}

	level, err := zapcore.ParseLevel(req.GetFields()["level"].GetStringValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "failed to convert logging level: %v", err)
	}

	m.atom.SetLevel(level)
	m.log.Infof("updated log level to %q", level)

	return &emptypb.Empty{}, nil
}
