package netupi

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PacketSocketSender sends frames through an AF_PACKET raw socket.
//
// Requires CAP_NET_RAW.
type PacketSocketSender struct{}

func (PacketSocketSender) Send(ifindex int, frames [][]byte) (int, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return 0, fmt.Errorf("failed to open packet socket: %w", err)
	}
	defer unix.Close(fd)

	addr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_IP),
		Ifindex:  ifindex,
	}
	if err := unix.Bind(fd, addr); err != nil {
		return 0, fmt.Errorf("failed to bind packet socket to link %d: %w", ifindex, err)
	}

	sent := 0
	for _, frame := range frames {
		if err := unix.Sendto(fd, frame, 0, addr); err != nil {
			return sent, fmt.Errorf("failed to send frame %d: %w", sent, err)
		}
		sent++
	}
	return sent, nil
}

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}
