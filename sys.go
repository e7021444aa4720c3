package pcap

// linkAddr is the link-level address block a get-address request writes
// into the scratch record: the address family it belongs to and the
// interface type code the capture link type is derived from.
type linkAddr struct {
	Family uint8
	IfType uint8
}

// ifaceStats is the statistics block a get-stats request writes into the
// scratch record. Counters are 32-bit and wrap; see Handle.Stats.
type ifaceStats struct {
	Receive struct {
		Packets uint32
		Errors  uint32
		Dropped uint32
	}
	Send struct {
		Packets uint32
		Errors  uint32
		Dropped uint32
	}
}

// ifreq is the control-request scratch record. One lives on each handle
// and is reused, as both input and output, across every control request
// the handle issues. Name is input to every request; exactly one of the
// remaining blocks is (over)written depending on the request:
//
//	opGetFlags reads Flags, opSetFlags writes them back
//	opGetAddress fills Addr
//	opGetStats fills Stats
//
// After any control call the record holds whatever that call left behind;
// callers must not assume anything else survived.
type ifreq struct {
	Name  [ifNameSize]byte
	Flags int32
	Addr  linkAddr
	Stats ifaceStats
}

func (ifr *ifreq) setName(device string) {
	for i := range ifr.Name {
		ifr.Name[i] = 0
	}
	copy(ifr.Name[:], device)
}

// syscalls is the seam between the capture logic and the OS. The
// production implementation lives in sys_unix.go; tests substitute fakes.
// All errors carry the originating errno where one exists, so the error
// translation in errors.go can match on it.
type syscalls interface {
	// DgramSocket opens a datagram socket in the given address family
	// (afInet or afLink).
	DgramSocket(family int) (fd int, err error)
	// IoctlIfreq issues one device control request against fd,
	// exchanging the scratch record with the OS.
	IoctlIfreq(fd int, op uintptr, ifr *ifreq) error
	// Recvfrom receives one datagram, truncating rather than failing if
	// it exceeds the buffer; the returned count is the datagram's full
	// length even when truncated.
	Recvfrom(fd int, buf []byte) (int, error)
	Close(fd int) error
	SetNonblock(fd int, nonblocking bool) error
	// PlatformVersion returns the running build's version string, as
	// reported by uname.
	PlatformVersion() string
}
