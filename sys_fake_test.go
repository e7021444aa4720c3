package pcap

import (
	"golang.org/x/sys/unix"
)

// fakeSys scripts the OS surface for tests: one interface whose flags,
// link address and drop counter are plain fields, and a queue of receive
// results.
type fakeSys struct {
	version string

	nextFd   int
	opened   []int
	families []int
	closed   []int

	flags   int32
	addrFam uint8
	ifType  uint8
	dropped uint32

	socketErr error
	ioctlErr  map[uintptr]error
	ioctls    []uintptr

	recvs    []fakeRecv
	nonblock map[int]bool
}

// fakeRecv is one scripted receive. n, when non-zero, is the reported
// datagram length and may exceed what fits in the buffer, the way a
// truncating receive reports oversized datagrams.
type fakeRecv struct {
	data []byte
	n    int
	err  error
}

func newFakeSys() *fakeSys {
	return &fakeSys{
		version:  "hrev57937",
		nextFd:   100,
		addrFam:  afLink,
		ifType:   ifTypeEther,
		ioctlErr: map[uintptr]error{},
		nonblock: map[int]bool{},
	}
}

func (f *fakeSys) DgramSocket(family int) (int, error) {
	if f.socketErr != nil {
		return -1, f.socketErr
	}
	fd := f.nextFd
	f.nextFd++
	f.opened = append(f.opened, fd)
	f.families = append(f.families, family)
	return fd, nil
}

func (f *fakeSys) IoctlIfreq(fd int, op uintptr, ifr *ifreq) error {
	f.ioctls = append(f.ioctls, op)
	if err := f.ioctlErr[op]; err != nil {
		return err
	}
	switch op {
	case opGetFlags:
		ifr.Flags = f.flags
	case opSetFlags:
		f.flags = ifr.Flags
	case opGetAddress:
		ifr.Addr = linkAddr{Family: f.addrFam, IfType: f.ifType}
	case opGetStats:
		ifr.Stats.Receive.Dropped = f.dropped
	case opStartCapture:
	}
	return nil
}

func (f *fakeSys) Recvfrom(fd int, buf []byte) (int, error) {
	if len(f.recvs) == 0 {
		return 0, unix.EAGAIN
	}
	r := f.recvs[0]
	f.recvs = f.recvs[1:]
	if r.err != nil {
		return 0, r.err
	}
	n := copy(buf, r.data)
	if r.n > 0 {
		return r.n, nil
	}
	return n, nil
}

func (f *fakeSys) Close(fd int) error {
	f.closed = append(f.closed, fd)
	return nil
}

func (f *fakeSys) SetNonblock(fd int, nonblocking bool) error {
	f.nonblock[fd] = nonblocking
	return nil
}

func (f *fakeSys) PlatformVersion() string {
	return f.version
}

// countOps counts how many control requests with the given code were
// issued.
func (f *fakeSys) countOps(op uintptr) int {
	var n int
	for _, o := range f.ioctls {
		if o == op {
			n++
		}
	}
	return n
}
