package netupi

import (
	"context"
	"fmt"
	"time"

	"github.com/vishvananda/netlink"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/wishful-project/agent/internal/discovery"
)

// LinksCache is a cache of netlink links keyed by interface name.
type LinksCache = discovery.Cache[string, netlink.LinkAttrs]

// LinksCacheView is a read-only view of the links cache.
type LinksCacheView = discovery.CacheView[string, netlink.LinkAttrs]

// LinkMonitor keeps the links cache in sync with the host.
//
// The cache is fully reloaded at startup and on every refresh tick, while
// netlink notifications are applied one link at a time.
type LinkMonitor struct {
	cache           *LinksCache
	links           LinkSource
	watch           bool
	refreshInterval time.Duration
	log             *zap.SugaredLogger
}

// NewLinkMonitor creates a new link monitor.
//
// The cache is populated synchronously before returning.
func NewLinkMonitor(cache *LinksCache, links LinkSource, watch bool, refreshInterval time.Duration, log *zap.SugaredLogger) *LinkMonitor {
	m := &LinkMonitor{
		cache:           cache,
		links:           links,
		watch:           watch,
		refreshInterval: refreshInterval,
		log:             log,
	}

	if err := m.reload(); err != nil {
		m.log.Warnw("failed to bootstrap links cache", zap.Error(err))
	}
	return m
}

// Run runs the link monitor until the specified context is canceled.
func (m *LinkMonitor) Run(ctx context.Context) error {
	if !m.watch && m.refreshInterval <= 0 {
		m.log.Debugf("links monitor is disabled, serving the bootstrap snapshot")
		return nil
	}

	m.log.Debugw("starting links monitor",
		zap.Bool("watch", m.watch),
		zap.Duration("refresh_interval", m.refreshInterval),
	)
	defer m.log.Debugf("stopped links monitor")

	wg, wgCtx := errgroup.WithContext(ctx)
	if m.watch {
		wg.Go(func() error {
			return m.watchUpdates(wgCtx)
		})
	}
	if m.refreshInterval > 0 {
		wg.Go(func() error {
			return m.refresh(wgCtx)
		})
	}

	err := wg.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *LinkMonitor) watchUpdates(ctx context.Context) error {
	updates := make(chan netlink.LinkUpdate, 16)
	if err := m.links.Subscribe(updates, ctx.Done()); err != nil {
		return fmt.Errorf("failed to subscribe to links updates: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("links subscription closed")
			}
			m.apply(update)
		}
	}
}

func (m *LinkMonitor) refresh(ctx context.Context) error {
	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.reload(); err != nil {
				m.log.Warnw("failed to refresh links", zap.Error(err))
			}
		}
	}
}

// apply applies a single netlink notification to the cache.
func (m *LinkMonitor) apply(update netlink.LinkUpdate) {
	if update.Link == nil || update.Link.Attrs() == nil {
		return
	}
	attrs := *update.Link.Attrs()

	m.cache.Update(func(cache map[string]netlink.LinkAttrs) {
		prev, known := cache[attrs.Name]

		if update.Header.Type == unix.RTM_DELLINK {
			delete(cache, attrs.Name)
			m.log.Infow("link removed", zap.String("iface", attrs.Name))
			return
		}
		cache[attrs.Name] = attrs

		switch {
		case !known:
			m.log.Infow("link added",
				zap.String("iface", attrs.Name),
				zap.Stringer("hw_addr", attrs.HardwareAddr),
			)
		case prev.OperState != attrs.OperState:
			m.log.Infow("link state changed",
				zap.String("iface", attrs.Name),
				zap.Stringer("from", prev.OperState),
				zap.Stringer("to", attrs.OperState),
			)
		case prev.HardwareAddr.String() != attrs.HardwareAddr.String():
			m.log.Infow("link hardware address changed",
				zap.String("iface", attrs.Name),
				zap.Stringer("from", prev.HardwareAddr),
				zap.Stringer("to", attrs.HardwareAddr),
			)
		}
	})
}

// reload replaces the cache with a fresh list of links.
func (m *LinkMonitor) reload() error {
	links, err := m.links.LinkList()
	if err != nil {
		return fmt.Errorf("failed to list links: %w", err)
	}

	cache := make(map[string]netlink.LinkAttrs, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		cache[attrs.Name] = *attrs
	}
	m.cache.Swap(cache)

	m.log.Debugw("reloaded links cache", zap.Int("size", len(cache)))

	return nil
}
