package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/wishful-project/agent/client"
	"github.com/wishful-project/agent/internal/upi"
	"github.com/wishful-project/agent/modules/netupi"
	"github.com/wishful-project/agent/modules/netupi/netupitest"
)

const testHardwareAddr = "02:42:ac:11:00:02"

func testLinks() *netupitest.StaticLinks {
	return netupitest.NewStaticLinks(
		netupitest.Device("lo", 1, ""),
		netupitest.Device("eth0", 2, testHardwareAddr),
	)
}

func newTestAgent(t *testing.T, mode Mode, options ...AgentOption) *Agent {
	t.Helper()

	options = append([]AgentOption{
		WithLog(zaptest.NewLogger(t).Sugar()),
		WithNetOptions(
			netupi.WithLinkSource(testLinks()),
			netupi.WithFrameSender(netupitest.DiscardSender{}),
		),
	}, options...)

	agent, err := New(mode, options...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, agent.Stop())
	})
	return agent
}

func loadConfig(t *testing.T, agent *Agent, data string) {
	t.Helper()

	doc := &yaml.Node{}
	require.NoError(t, yaml.Unmarshal([]byte(data), doc))
	require.NoError(t, agent.LoadConfig(doc))
}

const localConfig = `
agent:
  name: agent-1
modules:
  net:
    watch_links: false
`

func TestNew_InvalidMode(t *testing.T) {
	_, err := New(Mode("satellite"))
	require.Error(t, err)
}

func TestAgent_Lifecycle(t *testing.T) {
	agent := newTestAgent(t, ModeLocal)
	loadConfig(t, agent, localConfig)
	ctx := context.Background()

	ctrl := agent.Controller()
	assert.Equal(t, StateNotStarted, agent.State())

	_, err := ctrl.Call(ctx, "net.get_iface_hw_addr", "eth0")
	require.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, agent.Start(ctx))
	assert.Equal(t, StateRunning, agent.State())
	require.ErrorIs(t, agent.Start(ctx), ErrAlreadyRunning)
	require.ErrorIs(t, agent.LoadConfig(&yaml.Node{}), ErrAlreadyRunning)

	addr, err := ctrl.Call(ctx, "net.get_iface_hw_addr", "eth0")
	require.NoError(t, err)
	assert.Equal(t, testHardwareAddr, addr)

	require.NoError(t, agent.Stop())
	assert.Equal(t, StateStopped, agent.State())
	require.NoError(t, agent.Stop())
	assert.Equal(t, StateStopped, agent.State())

	_, err = ctrl.Call(ctx, "net.get_iface_hw_addr", "eth0")
	require.ErrorIs(t, err, ErrNotRunning)
	require.ErrorIs(t, agent.Start(ctx), ErrStopped)
}

func TestAgent_StopBeforeStart(t *testing.T) {
	agent := newTestAgent(t, ModeLocal)

	require.NoError(t, agent.Stop())
	assert.Equal(t, StateStopped, agent.State())
	require.ErrorIs(t, agent.Start(context.Background()), ErrStopped)
}

func TestAgent_LocalCalls(t *testing.T) {
	agent := newTestAgent(t, ModeLocal)
	loadConfig(t, agent, localConfig)

	ctx := context.Background()
	require.NoError(t, agent.Start(ctx))
	ctrl := agent.Controller()

	t.Run("HardwareAddr", func(t *testing.T) {
		addr, err := ctrl.Call(ctx, "net.get_iface_hw_addr", "eth0")
		require.NoError(t, err)
		assert.Equal(t, testHardwareAddr, addr)
	})

	t.Run("NoHardwareAddr", func(t *testing.T) {
		addr, err := ctrl.Call(ctx, "net.get_iface_hw_addr", "lo")
		require.NoError(t, err)
		assert.Nil(t, addr)
	})

	t.Run("MissingInterface", func(t *testing.T) {
		_, err := ctrl.Call(ctx, "net.get_iface_hw_addr", "doesnotexist0")
		require.ErrorIs(t, err, upi.ErrNotFound)
	})

	t.Run("UnknownFunction", func(t *testing.T) {
		_, err := ctrl.Call(ctx, "radio.set_channel", 6)
		require.ErrorIs(t, err, upi.ErrUnknownFunction)
	})

	t.Run("MalformedName", func(t *testing.T) {
		_, err := ctrl.Call(ctx, "get_iface_hw_addr", "eth0")
		require.ErrorIs(t, err, upi.ErrInvalidArgument)
	})

	t.Run("AgentInfo", func(t *testing.T) {
		result, err := ctrl.Call(ctx, "info.get_agent_info")
		require.NoError(t, err)

		agentInfo, ok := result.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, agent.ID(), agentInfo["id"])
		assert.Equal(t, "agent-1", agentInfo["name"])
		assert.Equal(t, "local", agentInfo["mode"])
	})

	t.Run("Go", func(t *testing.T) {
		call := ctrl.Go(ctx, nil, "net.get_iface_hw_addr", "eth0")
		addr, err := call.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, testHardwareAddr, addr)
	})
}

func TestAgent_ExportFilter(t *testing.T) {
	agent := newTestAgent(t, ModeLocal)
	loadConfig(t, agent, localConfig+`
upi:
  export: ["net.get_iface_hw_addr"]
`)

	ctx := context.Background()
	require.NoError(t, agent.Start(ctx))
	ctrl := agent.Controller()

	_, err := ctrl.Call(ctx, "net.get_iface_hw_addr", "eth0")
	require.NoError(t, err)

	_, err = ctrl.Call(ctx, "net.get_ifaces")
	require.ErrorIs(t, err, upi.ErrUnknownFunction)

	_, err = ctrl.Call(ctx, "info.list_upis")
	require.ErrorIs(t, err, upi.ErrUnknownFunction)
}

func TestAgent_ConfigLogLevel(t *testing.T) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	agent := newTestAgent(t, ModeLocal, WithAtomicLogLevel(&level))
	loadConfig(t, agent, "logging:\n  level: warn\n")

	assert.Equal(t, zap.WarnLevel, level.Level())
}

const remoteConfig = `
agent:
  name: agent-remote
  mode: remote
gateway:
  server:
    endpoint: "127.0.0.1:0"
modules:
  net:
    watch_links: false
`

func TestAgent_Remote(t *testing.T) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	agent := newTestAgent(t, ModeRemote,
		WithAtomicLogLevel(&level),
	)
	loadConfig(t, agent, remoteConfig)

	ctx := context.Background()
	require.NoError(t, agent.Start(ctx))

	addr := agent.GatewayAddr()
	require.NotNil(t, addr)

	ctrl, err := client.Dial(addr.String(), client.WithLog(zaptest.NewLogger(t).Sugar()))
	require.NoError(t, err)
	defer ctrl.Close()

	t.Run("HardwareAddr", func(t *testing.T) {
		addr, err := ctrl.Call(ctx, "net.get_iface_hw_addr", "eth0")
		require.NoError(t, err)
		assert.Equal(t, testHardwareAddr, addr)
	})

	t.Run("NoHardwareAddr", func(t *testing.T) {
		addr, err := ctrl.Call(ctx, "net.get_iface_hw_addr", "lo")
		require.NoError(t, err)
		assert.Nil(t, addr)
	})

	t.Run("MissingInterface", func(t *testing.T) {
		_, err := ctrl.Call(ctx, "net.get_iface_hw_addr", "doesnotexist0")
		require.ErrorIs(t, err, upi.ErrNotFound)
	})

	t.Run("UnknownModule", func(t *testing.T) {
		_, err := ctrl.Call(ctx, "radio.set_channel", 6)
		require.ErrorIs(t, err, upi.ErrUnknownFunction)
	})

	t.Run("ListServices", func(t *testing.T) {
		services, err := ctrl.ListServices(ctx)
		require.NoError(t, err)
		assert.Contains(t, services, "upi.net")
		assert.Contains(t, services, "upi.info")
	})

	t.Run("UpdateLevel", func(t *testing.T) {
		require.NoError(t, ctrl.UpdateLevel(ctx, "debug"))
		assert.Equal(t, zap.DebugLevel, level.Level())

		current, err := ctrl.GetLevel(ctx)
		require.NoError(t, err)
		assert.Equal(t, "debug", current)
	})

	t.Run("Go", func(t *testing.T) {
		done := make(chan *upi.Call, 1)
		call := ctrl.Go(ctx, func(call *upi.Call) {
			done <- call
		}, "info.list_upis")

		<-call.Done()
		completed := <-done
		require.NoError(t, completed.Err)
		assert.Contains(t, completed.Result, "net.get_iface_hw_addr")
	})

	require.NoError(t, agent.Stop())
	select {
	case <-agent.Done():
	default:
		t.Fatal("agent workers are still running after stop")
	}
}

func TestAgent_RemoteStartFailure(t *testing.T) {
	agent := newTestAgent(t, ModeRemote)
	loadConfig(t, agent, `
gateway:
  server:
    endpoint: "256.0.0.1:50051"
modules:
  net:
    watch_links: false
`)

	require.Error(t, agent.Start(context.Background()))
	assert.Equal(t, StateNotStarted, agent.State())
	assert.Nil(t, agent.GatewayAddr())
}
