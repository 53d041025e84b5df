package gateway

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/wishful-project/agent/internal/upi"
)

type echoInvoker struct{}

func (echoInvoker) Invoke(ctx context.Context, name string, args *structpb.ListValue) (*structpb.Value, error) {
	switch name {
	case "echo.echo":
		if len(args.GetValues()) != 1 {
			return nil, fmt.Errorf("%w: expected 1 argument", upi.ErrInvalidArgument)
		}
		return args.GetValues()[0], nil
	case "echo.missing":
		return nil, fmt.Errorf("%w: link doesnotexist0", upi.ErrNotFound)
	default:
		return nil, fmt.Errorf("%w: %q", upi.ErrUnknownFunction, name)
	}
}

func runGateway(t *testing.T, atom *zap.AtomicLevel) (string, context.Context) {
	t.Helper()

	log := zaptest.NewLogger(t).Sugar()
	cfg := &Config{
		Server: ServerConfig{
			Endpoint:       "127.0.0.1:0",
			MaxMessageSize: 1 * datasize.MB,
		},
	}
	gw := NewGateway(cfg, WithLog(log), WithAtomicLogLevel(atom))

	addr, err := gw.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return gw.Run(ctx)
	})

	runner := NewModuleRunner("echo", []string{"echo", "missing"}, echoInvoker{}, "127.0.0.1:0", addr.String(), log)
	wg.Go(func() error {
		return runner.Run(ctx)
	})

	select {
	case <-runner.Ready():
	case <-time.After(10 * time.Second):
		t.Fatal("module runner was not registered in time")
	}

	t.Cleanup(func() {
		cancel()
		require.NoError(t, wg.Wait())
		require.NoError(t, gw.Close())
	})

	return addr.String(), ctx
}

func dial(t *testing.T, endpoint string) *grpc.ClientConn {
	t.Helper()

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestGateway_ProxyUPI(t *testing.T) {
	endpoint, ctx := runGateway(t, nil)
	conn := dial(t, endpoint)

	args, err := upi.NewArgs("hello")
	require.NoError(t, err)

	out := new(structpb.Value)
	err = conn.Invoke(ctx, "/upi.echo/echo", args, out)
	require.NoError(t, err)
	assert.Equal(t, "hello", out.GetStringValue())

	err = conn.Invoke(ctx, "/upi.echo/missing", args, out)
	assert.Equal(t, codes.NotFound, status.Code(err))
	require.ErrorIs(t, upi.FromStatus(err), upi.ErrNotFound)

	err = conn.Invoke(ctx, "/upi.radio/set_channel", args, out)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestGateway_ListServices(t *testing.T) {
	endpoint, ctx := runGateway(t, nil)
	client := NewClient(dial(t, endpoint))

	services, err := client.ListServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{GatewayServiceName, LoggingServiceName, "upi.echo"}, services)
}

func TestGateway_UpdateLevel(t *testing.T) {
	atom := zap.NewAtomicLevelAt(zap.InfoLevel)
	endpoint, ctx := runGateway(t, &atom)
	client := NewClient(dial(t, endpoint))

	level, err := client.GetLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, "info", level)

	require.NoError(t, client.UpdateLevel(ctx, "debug"))
	assert.Equal(t, zap.DebugLevel, atom.Level())

	level, err = client.GetLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, "debug", level)

	err = client.UpdateLevel(ctx, "verbose")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGateway_UpdateLevelUnsupported(t *testing.T) {
	endpoint, ctx := runGateway(t, nil)
	client := NewClient(dial(t, endpoint))

	err := client.UpdateLevel(ctx, "debug")
	assert.Equal(t, codes.Unimplemented, status.Code(err))

	_, err = client.GetLevel(ctx)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestGatewayService_RegisterValidation(t *testing.T) {
	svc := NewGatewayService(NewBackendRegistry(), 0, zap.NewNop().Sugar())

	req, err := structpb.NewStruct(map[string]any{"name": "upi.net"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	for _, name := range []string{"agentpb.Gateway", "upi."} {
		req, err := structpb.NewStruct(map[string]any{"name": name, "endpoint": "127.0.0.1:1"})
		require.NoError(t, err)

		_, err = svc.Register(context.Background(), req)
		assert.Equal(t, codes.InvalidArgument, status.Code(err), name)
	}
}

func TestNewModuleServiceDesc(t *testing.T) {
	desc := NewModuleServiceDesc("net", []string{"get_iface_hw_addr", "get_ifaces"})

	assert.Equal(t, "upi.net", desc.ServiceName)
	require.Len(t, desc.Methods, 2)
	assert.Equal(t, "get_iface_hw_addr", desc.Methods[0].MethodName)
	assert.Equal(t, "get_ifaces", desc.Methods[1].MethodName)
}
