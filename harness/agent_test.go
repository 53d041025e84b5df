package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wishful-project/agent/common/go/logging"
)

func TestLocalAgent_ForwardsLogLevel(t *testing.T) {
	lc, err := NewLogContext(&logging.Config{
		Level:       zapcore.InfoLevel,
		OutputPaths: []string{filepath.Join(t.TempDir(), "harness.log")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = lc.Close() })

	a, err := LocalAgent()(lc)
	require.NoError(t, err)

	doc := &yaml.Node{}
	require.NoError(t, yaml.Unmarshal([]byte("logging:\n  level: debug\n"), doc))
	require.NoError(t, a.LoadConfig(doc))
	t.Cleanup(func() { _ = a.Stop() })

	assert.Equal(t, zapcore.DebugLevel, lc.Level().Level())
}

func TestLocalAgent_WrappedLogger(t *testing.T) {
	lc := WrapLogger(zap.NewNop().Sugar())

	a, err := LocalAgent()(lc)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Nil(t, lc.Level())
}
