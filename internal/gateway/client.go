package gateway

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a client of the gateway control and logging services.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient creates a new gateway client over the given connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Register registers a UPI module backend exposed on the given endpoint.
func (m *Client) Register(ctx context.Context, name string, endpoint string, opts ...grpc.CallOption) error {
	req, err := structpb.NewStruct(map[string]any{
		"name":     name,
		"endpoint": endpoint,
	})
	if err != nil {
		return err
	}

	return m.conn.Invoke(ctx, "/"+GatewayServiceName+"/Register", req, new(emptypb.Empty), opts...)
}

// ListServices returns names of all services reachable through the gateway.
func (m *Client) ListServices(ctx context.Context, opts ...grpc.CallOption) ([]string, error) {
	out := new(structpb.ListValue)
	if err := m.conn.Invoke(ctx, "/"+GatewayServiceName+"/ListServices", new(structpb.Struct), out, opts...); err != nil {
		return nil, err
	}

	services := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		services = append(services, v.GetStringValue())
	}
	return services, nil
}

// GetLevel returns the minimum logging level of the agent.
func (m *Client) GetLevel(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	out := new(structpb.Struct)
	if err := m.conn.Invoke(ctx, "/"+LoggingServiceName+"/GetLevel", new(structpb.Struct), out, opts...); err != nil {
		return "", err
	}

	return out.GetFields()["level"].GetStringValue(), nil
}

// UpdateLevel updates the minimum logging level of the agent.
func (m *Client) UpdateLevel(ctx context.Context, level string, opts ...grpc.CallOption) error {
	req, err := structpb.NewStruct(map[string]any{"level": level})
	if err != nil {
		return err
	}

	return m.conn.Invoke(ctx, "/"+LoggingServiceName+"/UpdateLevel", req, new(emptypb.Empty), opts...)
}
