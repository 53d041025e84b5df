package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("testdata/agent.yaml")
	require.NoError(t, err)

	assert.Equal(t, zapcore.DebugLevel, cfg.Logging.Level)
	assert.Equal(t, "agent-1", cfg.Agent.Name)
	assert.Equal(t, ModeRemote, cfg.Agent.Mode)
	assert.Equal(t, 5*time.Second, cfg.Agent.CallTimeout)
	assert.Equal(t, []string{"net.get_iface_*", "info.*"}, cfg.UPI.Export)
	assert.Equal(t, "127.0.0.1:0", cfg.Gateway.Server.Endpoint)
	assert.Equal(t, datasize.MB, cfg.Gateway.Server.MaxMessageSize)

	assert.True(t, cfg.Modules.Net.Enabled)
	assert.False(t, cfg.Modules.Net.WatchLinks)
	assert.Equal(t, 30*time.Second, cfg.Modules.Net.RefreshInterval)
	// Not overridden.
	assert.Equal(t, "127.0.0.1:0", cfg.Modules.Net.Endpoint)
	assert.True(t, cfg.Modules.Info.Enabled)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  name: minimal\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	expected := DefaultConfig()
	expected.Agent.Name = "minimal"
	assert.Equal(t, expected, cfg)
}

func TestReadDocument_Errors(t *testing.T) {
	dir := t.TempDir()

	writeFile := func(name string, data string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))
		return path
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "Missing", path: filepath.Join(dir, "missing.yaml")},
		{name: "Sequence", path: "testdata/sequence.yaml"},
		{name: "Scalar", path: writeFile("scalar.yaml", "just a string\n")},
		{name: "Empty", path: writeFile("empty.yaml", "")},
		{name: "Malformed", path: writeFile("malformed.yaml", "agent: [unclosed\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ReadDocument(tt.path)
			require.Error(t, err)
			assert.Nil(t, doc)
		})
	}
}

func TestDecodeConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "UnknownMode", data: "agent:\n  mode: satellite\n"},
		{name: "NegativeTimeout", data: "agent:\n  call_timeout: -1s\n"},
		{name: "NullGateway", data: "gateway: null\n"},
		{name: "NullNetModule", data: "modules:\n  net: null\n"},
		{name: "BadLevel", data: "logging:\n  level: chatty\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &yaml.Node{}
			require.NoError(t, yaml.Unmarshal([]byte(tt.data), doc))

			_, err := DecodeConfig(doc)
			require.Error(t, err)
		})
	}
}

func TestMode_UnmarshalText(t *testing.T) {
	var mode Mode
	require.NoError(t, mode.UnmarshalText([]byte("local")))
	assert.Equal(t, ModeLocal, mode)

	require.Error(t, mode.UnmarshalText([]byte("LOCAL")))
	assert.Equal(t, ModeLocal, mode)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "not_started", StateNotStarted.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(42).String())
}
