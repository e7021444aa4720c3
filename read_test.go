package pcap

import (
	"testing"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

func newTestHandle(t *testing.T, f *fakeSys, snaplen int32) *Handle {
	t.Helper()
	h, err := openLive("en0", snaplen, false, f)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

// rejectAll drops every frame.
var rejectAll = []bpf.Instruction{
	bpf.RetConstant{Val: 0},
}

// acceptAll keeps every frame whole.
var acceptAll = []bpf.Instruction{
	bpf.RetConstant{Val: 0xffffffff},
}

func TestReceiveOneDelivers(t *testing.T) {
	f := newFakeSys()
	h := newTestHandle(t, f, 1600)

	frame := []byte{0xde, 0xad, 0xbe, 0xef, 0x01}
	f.recvs = []fakeRecv{{data: frame}}

	var (
		calls int
		got   []byte
		ci    gopacket.CaptureInfo
	)
	before := time.Now()
	n, err := h.ReceiveOne(func(info gopacket.CaptureInfo, data []byte) {
		calls++
		got = data
		ci = info
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Equal(t, 1, calls)
	assert.Equal(t, frame, got)
	assert.Equal(t, len(frame), ci.CaptureLength)
	assert.Equal(t, len(frame), ci.Length)
	assert.False(t, ci.Timestamp.Before(before))
	assert.False(t, ci.Timestamp.After(time.Now()))
}

func TestReceiveOneClampsToSnapLen(t *testing.T) {
	f := newFakeSys()
	h := newTestHandle(t, f, 64)

	frame := make([]byte, 100)
	for i := range frame {
		frame[i] = byte(i)
	}
	f.recvs = []fakeRecv{{data: frame}}

	var ci gopacket.CaptureInfo
	var got []byte
	n, err := h.ReceiveOne(func(info gopacket.CaptureInfo, data []byte) {
		ci = info
		got = data
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 64, ci.CaptureLength)
	assert.Equal(t, 100, ci.Length, "original length is the full received length")
	assert.Equal(t, frame[:64], got)
}

func TestReceiveOneEmptyWhenNoData(t *testing.T) {
	f := newFakeSys()
	h := newTestHandle(t, f, 1600)

	// fakeSys reports EAGAIN on an empty queue.
	n, err := h.ReceiveOne(func(gopacket.CaptureInfo, []byte) {
		t.Fatal("no callback expected")
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	s, err := h.Stats()
	require.NoError(t, err)
	assert.Zero(t, s.Received)
}

func TestReceiveOneResumesAfterSignal(t *testing.T) {
	f := newFakeSys()
	h := newTestHandle(t, f, 1600)

	f.recvs = []fakeRecv{
		{err: unix.EINTR},
		{err: unix.EINTR},
		{data: []byte{1, 2, 3}},
	}
	var calls int
	n, err := h.ReceiveOne(func(gopacket.CaptureInfo, []byte) { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, calls)
}

func TestReceiveOneReportsReceiveFailure(t *testing.T) {
	f := newFakeSys()
	h := newTestHandle(t, f, 1600)

	f.recvs = []fakeRecv{{err: unix.EBADF}}
	n, err := h.ReceiveOne(func(gopacket.CaptureInfo, []byte) {
		t.Fatal("no callback expected")
	})
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, err.Error(), "recvfrom")
}

func TestReceiveOneInterrupted(t *testing.T) {
	f := newFakeSys()
	h := newTestHandle(t, f, 1600)
	f.recvs = []fakeRecv{{data: []byte{1, 2, 3}}}

	h.BreakLoop()
	n, err := h.ReceiveOne(func(gopacket.CaptureInfo, []byte) {
		t.Fatal("no callback expected")
	})
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, 0, n)

	// The stop request is consumed; the next call captures normally.
	var calls int
	n, err = h.ReceiveOne(func(gopacket.CaptureInfo, []byte) { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, calls)
}

func TestReceiveOneRejectsOversizedCount(t *testing.T) {
	f := newFakeSys()
	h := newTestHandle(t, f, 1600)

	// A truncating receive reporting more bytes than the buffer holds.
	f.recvs = []fakeRecv{{data: []byte{1, 2, 3}, n: defaultBufferSize + 1}}
	n, err := h.ReceiveOne(func(gopacket.CaptureInfo, []byte) {
		t.Fatal("no callback expected")
	})
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, err.Error(), "exceeds the buffer size")

	s, serr := h.Stats()
	require.NoError(t, serr)
	assert.Equal(t, uint32(1), s.Received, "the frame was received, just not deliverable")
}

func TestFilterRejectionCounts(t *testing.T) {
	f := newFakeSys()
	h := newTestHandle(t, f, 1600)
	require.NoError(t, h.SetBPF(rejectAll))

	f.recvs = []fakeRecv{{data: []byte{1, 2, 3}}}
	n, err := h.ReceiveOne(func(gopacket.CaptureInfo, []byte) {
		t.Fatal("rejected frames must not be delivered")
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	s, err := h.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), s.Received, "received counts frames that reached the filter")
	assert.Equal(t, uint32(1), s.FilterDropped)
}

func TestFilterSeesFullLength(t *testing.T) {
	f := newFakeSys()
	h := newTestHandle(t, f, 64)

	// Accept only if the byte at offset 90 is non-zero: the offset lies
	// beyond the snapshot length, so this passes only if the filter runs
	// against the full received frame.
	require.NoError(t, h.SetBPF([]bpf.Instruction{
		bpf.LoadAbsolute{Off: 90, Size: 1},
		bpf.RetA{},
	}))

	frame := make([]byte, 100)
	frame[90] = 0x7f
	f.recvs = []fakeRecv{{data: frame}}

	var ci gopacket.CaptureInfo
	n, err := h.ReceiveOne(func(info gopacket.CaptureInfo, _ []byte) { ci = info })
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, 64, ci.CaptureLength)
	assert.Equal(t, 100, ci.Length)
}

func TestSetBPFClears(t *testing.T) {
	f := newFakeSys()
	h := newTestHandle(t, f, 1600)
	require.NoError(t, h.SetBPF(rejectAll))
	require.NoError(t, h.SetBPF(nil))

	f.recvs = []fakeRecv{{data: []byte{9}}}
	n, err := h.ReceiveOne(func(gopacket.CaptureInfo, []byte) {})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSetRawBPF(t *testing.T) {
	f := newFakeSys()
	h := newTestHandle(t, f, 1600)

	raw, err := bpf.Assemble(acceptAll)
	require.NoError(t, err)
	require.NoError(t, h.SetRawBPF(raw))

	f.recvs = []fakeRecv{{data: []byte{1, 2}}}
	n, err := h.ReceiveOne(func(gopacket.CaptureInfo, []byte) {})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReadPacketData(t *testing.T) {
	f := newFakeSys()
	h := newTestHandle(t, f, 1600)

	frame := []byte{0xaa, 0xbb, 0xcc}
	f.recvs = []fakeRecv{{data: frame}}
	data, ci, err := h.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, frame, data)
	assert.Equal(t, len(frame), ci.CaptureLength)
}

func TestReadPacketDataNonblocking(t *testing.T) {
	f := newFakeSys()
	h := newTestHandle(t, f, 1600)
	require.NoError(t, h.SetNonblock(true))

	_, _, err := h.ReadPacketData()
	assert.ErrorIs(t, err, ErrNoPacket)
}

func TestReadPacketDataSkipsFilteredFrames(t *testing.T) {
	f := newFakeSys()
	h := newTestHandle(t, f, 1600)

	// Accept only frames whose first byte is non-zero.
	require.NoError(t, h.SetBPF([]bpf.Instruction{
		bpf.LoadAbsolute{Off: 0, Size: 1},
		bpf.RetA{},
	}))
	f.recvs = []fakeRecv{
		{data: []byte{0x00, 0x01}},
		{data: []byte{0x02, 0x03}},
	}
	data, _, err := h.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x03}, data)

	s, err := h.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), s.Received)
	assert.Equal(t, uint32(1), s.FilterDropped)
}
