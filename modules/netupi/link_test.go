package netupi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sys/unix"

	"github.com/wishful-project/agent/internal/discovery"
	"github.com/wishful-project/agent/modules/netupi/netupitest"
)

// streamingLinks delivers updates pushed by the test to the subscriber.
type streamingLinks struct {
	*netupitest.StaticLinks
	updates chan netlink.LinkUpdate
}

func (m *streamingLinks) Subscribe(ch chan<- netlink.LinkUpdate, done <-chan struct{}) error {
	go func() {
		for {
			select {
			case <-done:
				return
			case update := <-m.updates:
				ch <- update
			}
		}
	}()
	return nil
}

func linkUpdate(msgType uint16, link netlink.Link) netlink.LinkUpdate {
	return netlink.LinkUpdate{
		Header: unix.NlMsghdr{Type: msgType},
		Link:   link,
	}
}

func TestLinkMonitor_Bootstrap(t *testing.T) {
	links := netupitest.NewStaticLinks(
		netupitest.Device("lo", 1, ""),
		netupitest.Device("eth0", 2, "00:11:22:33:44:55"),
	)
	cache := discovery.NewEmptyCache[string, netlink.LinkAttrs]()

	m := NewLinkMonitor(cache, links, false, 0, zap.NewNop().Sugar())

	view := cache.View()
	assert.Equal(t, []string{"eth0", "lo"}, view.Keys())
	assert.False(t, view.UpdatedAt().IsZero())

	// Nothing to watch, returns immediately.
	require.NoError(t, m.Run(context.Background()))
}

func TestLinkMonitor_ApplyUpdates(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	links := &streamingLinks{
		StaticLinks: netupitest.NewStaticLinks(netupitest.Device("eth0", 2, "00:11:22:33:44:55")),
		updates:     make(chan netlink.LinkUpdate),
	}
	cache := discovery.NewEmptyCache[string, netlink.LinkAttrs]()
	m := NewLinkMonitor(cache, links, true, 0, zap.New(core).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	wlan := netupitest.Device("wlan0", 3, "02:00:00:00:01:00")
	links.updates <- linkUpdate(unix.RTM_NEWLINK, wlan)

	eth := netupitest.Device("eth0", 2, "00:11:22:33:44:55")
	eth.OperState = netlink.OperDown
	links.updates <- linkUpdate(unix.RTM_NEWLINK, eth)

	links.updates <- linkUpdate(unix.RTM_DELLINK, wlan)

	require.Eventually(t, func() bool {
		return logs.FilterMessage("link removed").Len() == 1
	}, 5*time.Second, 10*time.Millisecond)

	view := cache.View()
	assert.Equal(t, []string{"eth0"}, view.Keys())
	attrs, ok := view.Lookup("eth0")
	require.True(t, ok)
	assert.Equal(t, netlink.LinkOperState(netlink.OperDown), attrs.OperState)

	assert.Equal(t, 1, logs.FilterMessage("link added").Len())
	assert.Equal(t, 1, logs.FilterMessage("link state changed").Len())

	cancel()
	require.NoError(t, <-done)
}
