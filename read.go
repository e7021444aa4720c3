package pcap

import (
	"fmt"
	"time"

	"github.com/gopacket/gopacket"
)

// Handler consumes one captured frame. The data slice borrows the
// handle's receive buffer and is overwritten by the next receive; copy it
// if it must outlive the call.
type Handler func(ci gopacket.CaptureInfo, data []byte)

// BreakLoop requests that the next ReceiveOne call return ErrInterrupted
// instead of receiving. It is the only way to stop a blocked consumer
// cooperatively and may be called from another goroutine; a receive
// already in progress is not interrupted.
func (h *Handle) BreakLoop() {
	h.breakLoop.Store(true)
}

// ReceiveOne receives at most one frame and hands it to callback
// synchronously. It returns the number of frames delivered (0 or 1): 0
// with a nil error means the frame was rejected by the filter, or that
// the handle is non-blocking and no frame was queued. ErrInterrupted
// reports a BreakLoop request and clears it.
//
// The timestamp is wall-clock time taken after the receive returns, an
// approximation; this backend has no access to kernel or hardware
// packet timestamps.
func (h *Handle) ReceiveOne(callback Handler) (int, error) {
	var (
		n   int
		err error
	)
	for {
		if h.breakLoop.CompareAndSwap(true, false) {
			return 0, ErrInterrupted
		}
		n, err = h.sys.Recvfrom(h.fd, h.buf)
		if err != nil && isInterruptedSyscall(err) {
			continue
		}
		break
	}
	ts := time.Now()

	if err != nil {
		if isNoData(err) {
			// there is no packet for us
			return 0, nil
		}
		return 0, fmt.Errorf("recvfrom: %v", err)
	}
	h.stats.Received++

	// Receives truncate rather than fail, so this should be impossible;
	// if the count is oversized anyway, nothing is delivered.
	if n > len(h.buf) {
		return 0, fmt.Errorf("recvfrom returned %d, which exceeds the buffer size %d", n, len(h.buf))
	}

	if h.filter != nil {
		// The filter sees the full received length, not the snapshot
		// length; clamping happens after acceptance.
		keep, err := h.filter.Run(h.buf[:n])
		if err != nil {
			return 0, fmt.Errorf("running filter: %v", err)
		}
		if keep == 0 {
			h.stats.FilterDropped++
			return 0, nil
		}
	}

	caplen := n
	if caplen > int(h.snaplen) {
		caplen = int(h.snaplen)
	}
	callback(gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: caplen,
		Length:        n,
	}, h.buf[:caplen])
	return 1, nil
}

// ReadPacketData returns the next captured frame, implementing
// gopacket.PacketDataSource. The returned slice borrows the handle's
// buffer and is only valid until the next call. On a blocking handle it
// waits for a frame the filter accepts; on a non-blocking handle it
// returns ErrNoPacket when nothing is available.
func (h *Handle) ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error) {
	for {
		delivered, err := h.ReceiveOne(func(info gopacket.CaptureInfo, b []byte) {
			data, ci = b, info
		})
		if err != nil {
			return nil, ci, err
		}
		if delivered > 0 {
			return data, ci, nil
		}
		if h.nonblocking {
			return nil, ci, ErrNoPacket
		}
	}
}
