package info

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wishful-project/agent/internal/upi"
)

type staticLister []string

func (m staticLister) Names() []string {
	return m
}

func TestInfoModule(t *testing.T) {
	identity := Identity{ID: "0b8e7d4c-7a0c-4a55-9f5d-3c1f4f2b6a10", Name: "agent-1", Mode: "local"}
	m := NewInfoModule(identity, staticLister{"info.get_agent_info", "net.get_iface_hw_addr"}, zaptest.NewLogger(t).Sugar())

	registry, err := upi.NewRegistry(nil)
	require.NoError(t, err)
	_, err = registry.Register(m)
	require.NoError(t, err)

	t.Run("GetAgentInfo", func(t *testing.T) {
		value, err := registry.Invoke(context.Background(), "info.get_agent_info", nil)
		require.NoError(t, err)

		agentInfo, ok := upi.AsInterface(value).(map[string]any)
		require.True(t, ok)
		assert.Equal(t, identity.ID, agentInfo["id"])
		assert.Equal(t, "agent-1", agentInfo["name"])
		assert.Equal(t, "local", agentInfo["mode"])
		assert.Equal(t, "dev", agentInfo["version"])
		assert.NotEmpty(t, agentInfo["hostname"])
	})

	t.Run("ListUPIs", func(t *testing.T) {
		value, err := registry.Invoke(context.Background(), "info.list_upis", nil)
		require.NoError(t, err)
		assert.Equal(t, []any{"info.get_agent_info", "net.get_iface_hw_addr"}, upi.AsInterface(value))
	})

	t.Run("UnexpectedArguments", func(t *testing.T) {
		args, err := upi.NewArgs("extra")
		require.NoError(t, err)

		_, err = registry.Invoke(context.Background(), "info.list_upis", args)
		require.ErrorIs(t, err, upi.ErrInvalidArgument)
	})
}
