package netupi

import (
	"errors"
	"fmt"

	"github.com/vishvananda/netlink"

	"github.com/wishful-project/agent/internal/upi"
)

// LinkSource provides access to network links of the host.
type LinkSource interface {
	// LinkByName finds a link by name.
	//
	// It must return an error wrapping [upi.ErrNotFound] when there is no
	// such link.
	LinkByName(name string) (netlink.Link, error)
	// LinkList lists all links.
	LinkList() ([]netlink.Link, error)
	// AddrList lists addresses assigned to the link.
	AddrList(link netlink.Link, family int) ([]netlink.Addr, error)
	// Subscribe delivers link updates to ch until done is closed.
	Subscribe(ch chan<- netlink.LinkUpdate, done <-chan struct{}) error
}

// NetlinkSource is a LinkSource backed by the netlink sockets of the
// current network namespace.
type NetlinkSource struct{}

func (NetlinkSource) LinkByName(name string) (netlink.Link, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: interface %q", upi.ErrNotFound, name)
		}
		return nil, err
	}
	return link, nil
}

func (NetlinkSource) LinkList() ([]netlink.Link, error) {
	return netlink.LinkList()
}

func (NetlinkSource) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	return netlink.AddrList(link, family)
}

func (NetlinkSource) Subscribe(ch chan<- netlink.LinkUpdate, done <-chan struct{}) error {
	return netlink.LinkSubscribeWithOptions(ch, done, netlink.LinkSubscribeOptions{})
}
