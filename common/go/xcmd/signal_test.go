package xcmd

import (
	"context"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitInterrupted_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitInterrupted(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsInterrupted(err))
}

func TestIsInterrupted(t *testing.T) {
	err := fmt.Errorf("agent stopped: %w", Interrupted{Signal: syscall.SIGTERM})

	assert.True(t, IsInterrupted(err))
	assert.Equal(t, "agent stopped: terminated", err.Error())
}

func TestNotifyContext(t *testing.T) {
	ctx, stop := NotifyContext(context.Background())

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not canceled on SIGTERM")
	}
	stop()

	cause := context.Cause(ctx)
	require.True(t, IsInterrupted(cause))
	assert.Equal(t, syscall.SIGTERM, cause.(Interrupted).Signal)
}

func TestNotifyContext_Stop(t *testing.T) {
	ctx, stop := NotifyContext(context.Background())
	stop()

	<-ctx.Done()
	assert.False(t, IsInterrupted(context.Cause(ctx)))
}
