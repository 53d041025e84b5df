package netupi

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/vishvananda/netlink"
	"go.uber.org/zap"

	"github.com/wishful-project/agent/internal/discovery"
	"github.com/wishful-project/agent/internal/upi"
)

// ModuleName is the UPI prefix of this module.
const ModuleName = "net"

// Option is a function that configures the net module.
type Option func(*options)

// WithLinkSource replaces the netlink link source.
func WithLinkSource(links LinkSource) Option {
	return func(o *options) {
		o.Links = links
	}
}

// WithFrameSender replaces the raw frame sender.
func WithFrameSender(sender FrameSender) Option {
	return func(o *options) {
		o.Sender = sender
	}
}

type options struct {
	Links  LinkSource
	Sender FrameSender
}

func newOptions() *options {
	return &options{
		Links:  NetlinkSource{},
		Sender: PacketSocketSender{},
	}
}

// NetModule exposes network interface UPIs, such as hardware address lookup.
type NetModule struct {
	cfg     *Config
	links   LinkSource
	sender  FrameSender
	cache   *LinksCache
	monitor *LinkMonitor
	log     *zap.SugaredLogger
}

// NewNetModule creates a new NetModule.
func NewNetModule(cfg *Config, log *zap.SugaredLogger, options ...Option) *NetModule {
	opts := newOptions()
	for _, o := range options {
		o(opts)
	}

	log = log.Named(ModuleName).With(zap.String("module", ModuleName))

	cache := discovery.NewEmptyCache[string, netlink.LinkAttrs]()
	monitor := NewLinkMonitor(cache, opts.Links, cfg.WatchLinks, cfg.RefreshInterval, log)

	return &NetModule{
		cfg:     cfg,
		links:   opts.Links,
		sender:  opts.Sender,
		cache:   cache,
		monitor: monitor,
		log:     log,
	}
}

func (m *NetModule) Name() string {
	return ModuleName
}

func (m *NetModule) Functions() map[string]upi.Func {
	return map[string]upi.Func{
		"get_iface_hw_addr":  m.getIfaceHWAddr,
		"get_iface_ip_addr":  m.getIfaceIPAddr,
		"get_ifaces":         m.getIfaces,
		"gen_layer2_traffic": m.genLayer2Traffic,
	}
}

// Run runs the link monitor until the specified context is canceled.
func (m *NetModule) Run(ctx context.Context) error {
	return m.monitor.Run(ctx)
}

// Close closes the module.
func (m *NetModule) Close() error {
	return nil
}

// Links returns a read-only view of the links cache.
func (m *NetModule) Links() LinksCacheView {
	return m.cache.View()
}

// linkByName resolves a link directly through the link source, so that
// lookups never depend on the cache freshness.
func (m *NetModule) linkByName(iface string) (netlink.Link, error) {
	if iface == "" {
		return nil, fmt.Errorf("%w: interface name must not be empty", upi.ErrInvalidArgument)
	}

	link, err := m.links.LinkByName(iface)
	if err != nil {
		if errors.Is(err, upi.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to lookup interface %q: %w", iface, err)
	}
	return link, nil
}

// getIfaceHWAddr returns the hardware address of the interface, or nil if
// the interface has none.
func (m *NetModule) getIfaceHWAddr(ctx context.Context, args upi.Args) (any, error) {
	if err := args.Expect(1); err != nil {
		return nil, err
	}
	iface, err := args.String(0)
	if err != nil {
		return nil, err
	}

	link, err := m.linkByName(iface)
	if err != nil {
		return nil, err
	}

	hardwareAddr := link.Attrs().HardwareAddr
	if len(hardwareAddr) == 0 {
		m.log.Debugw("interface has no hardware address", zap.String("iface", iface))
		return nil, nil
	}

	m.log.Debugw("resolved hardware address",
		zap.String("iface", iface),
		zap.Stringer("hardware_addr", hardwareAddr),
	)
	return hardwareAddr.String(), nil
}

// getIfaceIPAddr returns all IP prefixes assigned to the interface.
func (m *NetModule) getIfaceIPAddr(ctx context.Context, args upi.Args) (any, error) {
	if err := args.Expect(1); err != nil {
		return nil, err
	}
	iface, err := args.String(0)
	if err != nil {
		return nil, err
	}

	link, err := m.linkByName(iface)
	if err != nil {
		return nil, err
	}

	addrs, err := m.links.AddrList(link, netlink.FAMILY_ALL)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses of %q: %w", iface, err)
	}

	prefixes := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if addr.IPNet == nil {
			continue
		}
		ip, ok := netip.AddrFromSlice(addr.IP)
		if !ok {
			m.log.Warnf("failed to parse interface IP address: %q", addr.IP)
			continue
		}
		bits, _ := addr.Mask.Size()
		prefixes = append(prefixes, netip.PrefixFrom(ip.Unmap(), bits).String())
	}
	return prefixes, nil
}

// getIfaces lists cached interfaces.
func (m *NetModule) getIfaces(ctx context.Context, args upi.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}

	view := m.cache.View()
	ifaces := make([]map[string]any, 0, view.Len())
	for _, name := range view.Keys() {
		attrs, _ := view.Lookup(name)
		ifaces = append(ifaces, map[string]any{
			"name":    attrs.Name,
			"index":   attrs.Index,
			"mtu":     attrs.MTU,
			"hw_addr": attrs.HardwareAddr,
			"up":      attrs.OperState == netlink.OperUp,
		})
	}
	return ifaces, nil
}

// genLayer2Traffic sends a burst of broadcast UDP frames out of the
// interface and returns the number of frames sent.
//
// Arguments: interface name, frame count, source IPv4, destination IPv4.
func (m *NetModule) genLayer2Traffic(ctx context.Context, args upi.Args) (any, error) {
	if err := args.Expect(4); err != nil {
		return nil, err
	}
	iface, err := args.String(0)
	if err != nil {
		return nil, err
	}
	count, err := args.Int(1)
	if err != nil {
		return nil, err
	}
	srcIP, err := parseAddrArg(args, 2)
	if err != nil {
		return nil, err
	}
	dstIP, err := parseAddrArg(args, 3)
	if err != nil {
		return nil, err
	}

	link, err := m.linkByName(iface)
	if err != nil {
		return nil, err
	}

	frames, err := BuildFrames(TrafficParams{
		SrcMAC: link.Attrs().HardwareAddr,
		SrcIP:  srcIP,
		DstIP:  dstIP,
		Count:  count,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", upi.ErrInvalidArgument, err)
	}

	sent, err := m.sender.Send(link.Attrs().Index, frames)
	m.log.Infow("generated layer-2 traffic",
		zap.String("iface", iface),
		zap.Int("requested", count),
		zap.Int("sent", sent),
	)
	if err != nil {
		return nil, err
	}
	return sent, nil
}

func parseAddrArg(args upi.Args, idx int) (netip.Addr, error) {
	s, err := args.String(idx)
	if err != nil {
		return netip.Addr{}, err
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: argument %d: %v", upi.ErrInvalidArgument, idx, err)
	}
	return addr, nil
}
