// Package xpacket contains helpers for inspecting raw layer-2 frames.
package xpacket

import (
	"fmt"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/require"
)

// Decode parses an Ethernet frame.
//
// Returns an error if any layer is malformed.
func Decode(frame []byte) (gopacket.Packet, error) {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	if errLayer := pkt.ErrorLayer(); errLayer != nil {
		return nil, fmt.Errorf("failed to decode %s layer: %w", errLayer.LayerType(), errLayer.Error())
	}
	return pkt, nil
}

// DecodeT parses an Ethernet frame, failing the test on malformed layers.
func DecodeT(t testing.TB, frame []byte) gopacket.Packet {
	t.Helper()

	pkt, err := Decode(frame)
	require.NoError(t, err)
	return pkt
}

// UDPPayload returns the UDP payload of the packet.
func UDPPayload(pkt gopacket.Packet) ([]byte, error) {
	udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if !ok {
		return nil, fmt.Errorf("not a UDP packet")
	}
	return udp.Payload, nil
}
