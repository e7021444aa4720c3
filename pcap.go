package pcap

import (
	"errors"

	"github.com/gopacket/gopacket"
)

// Packet a single packet returned by a listen call
type Packet struct {
	B     []byte
	Info  gopacket.CaptureInfo
	Error error
}

// OpenLive open a live capture. Returns a Handle that implements
// https://godoc.org/github.com/gopacket/gopacket#PacketDataSource so you
// can pass it there.
//
// A non-nil Handle may be returned together with ErrPromiscNotSupported:
// promiscuous mode was requested but refused, and capture proceeds
// without it.
func OpenLive(device string, snaplen int32, promiscuous bool) (handle *Handle, _ error) {
	return openLive(device, snaplen, promiscuous, hostSyscalls)
}

// Listen simple one-step command to listen and send packets over a
// returned channel. The channel closes when the capture stops, either by
// BreakLoop or by closing the handle. Packet bytes are copied out of the
// handle's buffer so they survive the next receive.
func (h *Handle) Listen() chan Packet {
	c := make(chan Packet, 50)
	go func() {
		defer close(c)
		for {
			b, ci, err := h.ReadPacketData()
			if err != nil {
				if errors.Is(err, ErrNoPacket) {
					continue
				}
				c <- Packet{Error: err}
				return
			}
			out := make([]byte, len(b))
			copy(out, b)
			c <- Packet{
				B:    out,
				Info: ci,
			}
		}
	}()
	return c
}
