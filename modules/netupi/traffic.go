package netupi

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

const (
	// TrafficPort is the UDP port used for generated layer-2 traffic.
	TrafficPort = 5001
	// MaxTrafficFrames bounds a single traffic generation request.
	MaxTrafficFrames = 10000
)

// broadcastHardwareAddr is the destination of generated frames.
var broadcastHardwareAddr = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// FrameSender writes raw layer-2 frames to a network interface.
type FrameSender interface {
	Send(ifindex int, frames [][]byte) (int, error)
}

// TrafficParams describes a burst of generated layer-2 traffic.
type TrafficParams struct {
	SrcMAC net.HardwareAddr
	SrcIP  netip.Addr
	DstIP  netip.Addr
	Count  int
}

// BuildFrames builds Ethernet/IPv4/UDP broadcast frames described by params.
//
// Every frame carries its sequence number as payload.
func BuildFrames(params TrafficParams) ([][]byte, error) {
	if params.Count <= 0 || params.Count > MaxTrafficFrames {
		return nil, fmt.Errorf("frame count must be in range [1, %d], got %d", MaxTrafficFrames, params.Count)
	}
	if !params.SrcIP.Is4() || !params.DstIP.Is4() {
		return nil, fmt.Errorf("only IPv4 addresses are supported")
	}
	if len(params.SrcMAC) != 6 {
		return nil, fmt.Errorf("unsupported source MAC address %q: must be EUI-48", params.SrcMAC)
	}

	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}

	frames := make([][]byte, 0, params.Count)
	for seq := range params.Count {
		eth := &layers.Ethernet{
			SrcMAC:       params.SrcMAC,
			DstMAC:       broadcastHardwareAddr,
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip4 := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Id:       uint16(seq),
			Protocol: layers.IPProtocolUDP,
			SrcIP:    params.SrcIP.AsSlice(),
			DstIP:    params.DstIP.AsSlice(),
		}
		udp := &layers.UDP{
			SrcPort: TrafficPort,
			DstPort: TrafficPort,
		}
		if err := udp.SetNetworkLayerForChecksum(ip4); err != nil {
			return nil, err
		}

		payload := gopacket.Payload(fmt.Appendf(nil, "wishful-%d", seq))

		buf := gopacket.NewSerializeBuffer()
		if err := gopacket.SerializeLayers(buf, opts, eth, ip4, udp, payload); err != nil {
			return nil, fmt.Errorf("failed to serialize frame %d: %w", seq, err)
		}
		frames = append(frames, buf.Bytes())
	}

	return frames, nil
}
