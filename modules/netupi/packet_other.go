//go:build !linux

package netupi

import "errors"

// PacketSocketSender sends frames through an AF_PACKET raw socket, which is
// only available on Linux.
type PacketSocketSender struct{}

func (PacketSocketSender) Send(ifindex int, frames [][]byte) (int, error) {
	return 0, errors.New("packet sockets are not supported on this platform")
}
