// Package netupitest provides test doubles for the net UPI module.
package netupitest

import (
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"

	"github.com/vishvananda/netlink"

	"github.com/wishful-project/agent/common/go/xerror"
	"github.com/wishful-project/agent/internal/upi"
)

// StaticLinks is an in-memory link source with a fixed set of links.
type StaticLinks struct {
	mu    sync.Mutex
	links map[string]netlink.Link
	addrs map[string][]netlink.Addr
}

// NewStaticLinks creates a link source with the given links.
func NewStaticLinks(links ...netlink.Link) *StaticLinks {
	m := &StaticLinks{
		links: map[string]netlink.Link{},
		addrs: map[string][]netlink.Addr{},
	}
	for _, link := range links {
		m.links[link.Attrs().Name] = link
	}
	return m
}

// SetAddrs assigns addresses to the named link.
func (m *StaticLinks) SetAddrs(name string, addrs ...netlink.Addr) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.addrs[name] = addrs
}

func (m *StaticLinks) LinkByName(name string) (netlink.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[name]
	if !ok {
		return nil, fmt.Errorf("%w: interface %q", upi.ErrNotFound, name)
	}
	return link, nil
}

func (m *StaticLinks) LinkList() ([]netlink.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]netlink.Link, 0, len(m.links))
	for _, link := range m.links {
		out = append(out, link)
	}
	slices.SortFunc(out, func(a, b netlink.Link) int {
		return strings.Compare(a.Attrs().Name, b.Attrs().Name)
	})
	return out, nil
}

func (m *StaticLinks) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.addrs[link.Attrs().Name], nil
}

// Subscribe never delivers updates.
func (m *StaticLinks) Subscribe(ch chan<- netlink.LinkUpdate, done <-chan struct{}) error {
	return nil
}

// Device returns an operationally up device link.
//
// Empty hwAddr produces a link without a hardware address, like loopback.
func Device(name string, index int, hwAddr string) *netlink.Device {
	attrs := netlink.NewLinkAttrs()
	attrs.Name = name
	attrs.Index = index
	attrs.MTU = 1500
	attrs.OperState = netlink.OperUp
	if hwAddr != "" {
		attrs.HardwareAddr = xerror.Unwrap(net.ParseMAC(hwAddr))
	}
	return &netlink.Device{LinkAttrs: attrs}
}

// DiscardSender accepts and drops all frames.
type DiscardSender struct{}

func (DiscardSender) Send(ifindex int, frames [][]byte) (int, error) {
	return len(frames), nil
}
